package util

const (
	SERVER_ERROR                 = "Server error"
	NOT_AUTHORIZED_NO_TOKEN      = "Not authorized, no token"
	TOKEN_EXPIRED                = "Token expired"
	INVALID_TOKEN                = "Invalid token"
	AUTH_NOT_CONFIGURED          = "Authentication is not configured"
	USER_NOT_FOUND               = "User not found"
	USER_ROLE_NOT_AUTHORIZED     = "User role is not authorized to access this route"
	USER_ALREADY_EXISTS          = "User already exists"
	INVALID_ROLE                 = "Invalid role"
	ACCOUNT_DISABLED             = "Account is disabled"
	USER_NOT_CONFIRMED           = "Please verify your email before logging in"
	INVALID_CREDENTIALS          = "Invalid email or password"
	INVALID_VERIFICATION_CODE    = "Invalid verification code"
	VERIFICATION_CODE_EXPIRED    = "Verification code has expired"
	INVALID_PASSWORD             = "Password does not meet the requirements"
	TOO_MANY_REQUESTS            = "Too many attempts, please try again later"
	INVALID_PHONE                = "Invalid phone number"
	INVALID_ID                   = "Invalid id"
	PRESCRIPTION_NOT_FOUND       = "Prescription not found"
	PRESCRIPTION_NUMBER_EXISTS   = "Prescription number already exists"
	PRESCRIPTION_HAS_NO_FILE     = "Prescription has no attached file"
	NOT_AUTHORIZED_PRESCRIPTION  = "Not authorized to access this prescription"
	INVALID_STATUS               = "Invalid status"
	NO_MEDICATIONS_SELECTED      = "No medications selected"
	MEDICATION_NOT_FOUND         = "Medication not found"
	NOT_AUTHORIZED_MEDICATION    = "Not authorized to access this medication"
	INVENTORY_ITEM_NOT_FOUND     = "Inventory item not found"
	NOT_AUTHORIZED_INVENTORY     = "Not authorized to access this inventory item"
	INVALID_RESTOCK_QUANTITY     = "Restock quantity must be greater than zero"
	FILENAME_REQUIRED            = "Filename is required"
	INVALID_FILE_TYPE            = "Invalid file type. Allowed: JPG, PNG, PDF"
	STORAGE_UNAVAILABLE          = "Unable to store the prescription file"
	NO_MEDICATIONS_FOUND         = "no medications found"
	PRESCRIPTION_CREATED_CLOUD   = "Prescription uploaded to cloud storage"
	PRESCRIPTION_CREATED_LOCAL   = "Prescription saved locally (cloud storage unavailable)"
	PRESCRIPTION_CREATED_NO_FILE = "Prescription created"
	DOCTOR_NAME_REQUIRED         = "Doctor name is required"
	PRESCRIPTION_DATE_REQUIRED   = "Prescription date is required"
	INVALID_REQUEST_BODY         = "Invalid request body"
	SCHEDULES_CREATED            = "Medication schedules created"
	PARSED_MEDICATIONS_ADDED     = "Prescription parsed successfully"
	PARSING_FAILED               = "Prescription parsing failed"
	STATUS_UPDATED               = "Prescription status updated successfully"
	PRESCRIPTION_DELETED         = "Prescription deleted successfully"
	MEDICATION_CREATED           = "Medication schedule created successfully"
	MEDICATION_UPDATED           = "Medication updated successfully"
	MEDICATION_DELETED           = "Medication deleted successfully"
	INTAKE_LOGGED                = "Medication intake logged successfully"
	PROFILE_UPDATED              = "Profile updated successfully"
	PRESCRIPTION_PROCESSING      = "Prescription is now being processed"
	INVENTORY_CREATED            = "Inventory item added successfully"
	INVENTORY_UPDATED            = "Inventory item updated successfully"
	INVENTORY_DELETED            = "Inventory item deleted successfully"
	INVENTORY_RESTOCKED          = "Inventory restocked successfully"
	REGISTERED                   = "Registration successful. Please check your email for the verification code"
	LOGGED_IN                    = "Login successful"
	EMAIL_VERIFIED               = "Email verified successfully"
	CODE_RESENT                  = "Verification code sent"
	RESET_CODE_SENT              = "Password reset code sent to your email"
	PASSWORD_RESET               = "Password reset successfully"
	FILE_TOO_LARGE               = "File exceeds the 10MB limit"
	INVALID_DATE                 = "Invalid prescription date"
	LOGGED_OUT                   = "Logged out successfully"
	INVALID_FILE_REFERENCE       = "File reference must be a key issued by the upload URL endpoint"
	PARSE_TEXT_REQUIRED          = "Prescription text is required"
)

// Collections
const (
	UserCollection         = "users"
	PrescriptionCollection = "prescriptions"
	MedicationCollection   = "medications"
	InventoryCollection    = "inventory"
)

// Cache keys
const (
	PrescriptionKey = "prescription:"
)

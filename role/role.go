package role

const (
	Patient   = "patient"
	Pharmacy  = "pharmacy"
	Caregiver = "caregiver"
	Admin     = "admin"
)

// All lists every role a user record may carry.
var All = []string{Patient, Pharmacy, Caregiver, Admin}

// SelfRegistrable lists the roles accepted by the public register endpoint.
// Admin accounts are provisioned out of band.
var SelfRegistrable = []string{Patient, Pharmacy, Caregiver}

func IsValid(r string) bool {
	return In(r, All...)
}

func In(r string, allowed ...string) bool {
	for _, a := range allowed {
		if r == a {
			return true
		}
	}
	return false
}

package notify

import (
	"bytes"
	"fmt"
	"html/template"
)

type ReminderData struct {
	Name          string
	Medication    string
	Dosage        string
	ScheduledTime string
	Instructions  string
}

type ReadyData struct {
	Name               string
	PrescriptionNumber string
}

var (
	reminderTmpl = template.Must(template.New("reminder").Parse(reminderHTMLTemplate))
	readyTmpl    = template.Must(template.New("ready").Parse(readyHTMLTemplate))
)

func BuildReminderEmail(to string, data ReminderData) Email {
	if data.Instructions == "" {
		data.Instructions = "Take as prescribed"
	}
	var html bytes.Buffer
	_ = reminderTmpl.Execute(&html, data)
	text := fmt.Sprintf("Hello %s,\n\nThis is a reminder to take %s (%s) scheduled at %s.\nInstructions: %s\n\nPlease log your intake in the Ashray app.\n",
		data.Name, data.Medication, data.Dosage, data.ScheduledTime, data.Instructions)
	return Email{
		To:       to,
		Subject:  "Medication Reminder: " + data.Medication,
		TextBody: text,
		HTMLBody: html.String(),
	}
}

func BuildReadyEmail(to string, data ReadyData) Email {
	var html bytes.Buffer
	_ = readyTmpl.Execute(&html, data)
	text := fmt.Sprintf("Hello %s,\n\nYour prescription #%s is ready for pickup.\nPlease visit the pharmacy at your earliest convenience.\n",
		data.Name, data.PrescriptionNumber)
	return Email{
		To:       to,
		Subject:  "Your Prescription is Ready",
		TextBody: text,
		HTMLBody: html.String(),
	}
}

const reminderHTMLTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>Medication Reminder</title>
</head>
<body style="margin: 0; padding: 0; font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
    <div style="background-color: #4CAF50; color: white; padding: 20px; text-align: center;">
      <h1 style="margin: 0;">Medication Reminder</h1>
    </div>
    <div style="padding: 20px; background-color: #f9f9f9;">
      <p>Hello {{.Name}},</p>
      <p>This is a reminder to take your medication:</p>
      <div style="background-color: white; padding: 15px; margin: 10px 0; border-left: 4px solid #4CAF50;">
        <h3 style="margin-top: 0;">{{.Medication}}</h3>
        <p><strong>Dosage:</strong> {{.Dosage}}</p>
        <p><strong>Scheduled Time:</strong> {{.ScheduledTime}}</p>
        <p><strong>Instructions:</strong> {{.Instructions}}</p>
      </div>
      <p>Please remember to log your medication intake in the Ashray app.</p>
    </div>
    <div style="text-align: center; padding: 20px; font-size: 12px; color: #666;">
      <p>This is an automated message from Ashray Pharmacy System</p>
    </div>
  </div>
</body>
</html>`

const readyHTMLTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>Prescription Ready</title>
</head>
<body style="margin: 0; padding: 0; font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
    <div style="background-color: #2196F3; color: white; padding: 20px; text-align: center;">
      <h1 style="margin: 0;">Prescription Ready for Pickup</h1>
    </div>
    <div style="padding: 20px; background-color: #f9f9f9;">
      <p>Hello {{.Name}},</p>
      <p>Your prescription #{{.PrescriptionNumber}} is ready for pickup!</p>
      <p>Please visit the pharmacy at your earliest convenience.</p>
      <p>Thank you for choosing Ashray Pharmacy System.</p>
    </div>
  </div>
</body>
</html>`

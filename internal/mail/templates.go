package mail

import (
	"fmt"
	"time"
)

// OTPMessage carries a password reset code.
func OTPMessage(to, otp string) Message {
	return Message{
		To:      to,
		Subject: "Password Reset OTP",
		Text:    fmt.Sprintf("Your OTP is: %s. Valid for 15 minutes.", otp),
	}
}

// PasswordResetMessage confirms a completed password reset.
func PasswordResetMessage(to string, at time.Time) Message {
	return Message{
		To:      to,
		Subject: "Canteen Password Updated",
		Text: fmt.Sprintf("Your Canteen account password was reset at: %s\n\n"+
			"If this wasn't you, contact support immediately.", at.Format("2006-01-02 15:04:05")),
	}
}

// StatementMessage carries a monthly bill statement.
func StatementMessage(to string, month time.Month, year int, markdown, html string) Message {
	return Message{
		To:      to,
		Subject: fmt.Sprintf("Canteen bill for %s %d", month, year),
		Text:    markdown,
		HTML:    html,
	}
}

package mail

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
)

type content struct {
	subject string
	text    *texttemplate.Template
	html    *htmltemplate.Template
}

var verifyEmail = content{
	subject: "Verify Email Address",
	text: texttemplate.Must(texttemplate.New("verify").Parse(
		"Click the link below to verify your email address:\n\n{{.URL}}\n",
	)),
	html: htmltemplate.Must(htmltemplate.New("verify").Parse(`<!doctype html>
<html><body>
<h1>Verify Email Address</h1>
<p>Click the link below to verify your email address.</p>
<p><a href="{{.URL}}">Verify email</a></p>
</body></html>
`)),
}

var passwordReset = content{
	subject: "Password Reset Request",
	text: texttemplate.Must(texttemplate.New("reset").Parse(
		"You requested a password reset. Use the link below within the hour:\n\n{{.URL}}\n\nIf you did not request this, ignore this email.\n",
	)),
	html: htmltemplate.Must(htmltemplate.New("reset").Parse(`<!doctype html>
<html><body>
<h1>Password Reset Request</h1>
<p>You requested a password reset. The link below is valid for one hour.</p>
<p><a href="{{.URL}}">Reset password</a></p>
<p>If you did not request this, ignore this email.</p>
</body></html>
`)),
}

// VerificationMessage builds the email carrying an email verification link.
func VerificationMessage(to, url string) (Message, error) {
	return verifyEmail.render(to, url)
}

// PasswordResetMessage builds the email carrying a password reset link.
func PasswordResetMessage(to, url string) (Message, error) {
	return passwordReset.render(to, url)
}

func (c content) render(to, url string) (Message, error) {
	data := struct{ URL string }{URL: url}

	var text, html bytes.Buffer
	if err := c.text.Execute(&text, data); err != nil {
		return Message{}, fmt.Errorf("mail: render %q text: %w", c.subject, err)
	}
	if err := c.html.Execute(&html, data); err != nil {
		return Message{}, fmt.Errorf("mail: render %q html: %w", c.subject, err)
	}

	return Message{
		To:      to,
		Subject: c.subject,
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}

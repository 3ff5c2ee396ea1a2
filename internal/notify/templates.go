package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

const (
	KindResetRequested = "password_reset_requested"
	KindResetCompleted = "password_reset_completed"
)

var resetRequestedTmpl = template.Must(template.New("reset_requested").Parse(`<div>
  <p>Hello {{.Name}},<br />
  We received a request to reset the password for your account.</p>
  <p><a href="{{.Link}}">Reset your password</a></p>
  <p>This link expires in {{.ValidFor}}.</p>
  <p>If you did not request this, you can ignore or delete this email.</p>
</div>`))

var resetCompletedTmpl = template.Must(template.New("reset_completed").Parse(`<div>
  <p>Hello {{.Name}},<br />
  The password for your account has been reset.</p>
  <p>If you did not do this, reset your password again right away.</p>
</div>`))

// ResetRequestedEmail formats the email carrying the reset link.
func ResetRequestedEmail(to, name, link, validFor string) (Message, error) {
	body, err := render(resetRequestedTmpl, map[string]string{
		"Name":     name,
		"Link":     link,
		"ValidFor": validFor,
	})
	if err != nil {
		return Message{}, err
	}
	return Message{Subject: "Reset your password", HTML: body, To: to}, nil
}

// ResetCompletedEmail formats the confirmation sent after a reset.
func ResetCompletedEmail(to, name string) (Message, error) {
	body, err := render(resetCompletedTmpl, map[string]string{"Name": name})
	if err != nil {
		return Message{}, err
	}
	return Message{Subject: "Your password has been reset", HTML: body, To: to}, nil
}

// FormatValidity renders d for humans, e.g. "24 hours" or "30 minutes".
func FormatValidity(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	case d >= time.Minute && d%time.Minute == 0:
		return plural(int(d/time.Minute), "minute")
	default:
		return d.String()
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

func render(t *template.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}

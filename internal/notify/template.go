// AngelaMos | 2026
// template.go

package notify

import (
	"bytes"
	"fmt"
	"text/template"
)

type messageTemplate struct {
	subject string
	body    *template.Template
}

var templates = map[Kind]messageTemplate{
	KindPasswordReset: {
		subject: "Password reset code",
		body: template.Must(template.New(string(KindPasswordReset)).Parse(
			`Hello {{.name}},

Use the code {{.otp}} to reset your password. It expires in {{.ttl}}.

If you did not ask for a reset you can ignore this email.
`)),
	},
	KindContactProvisioned: {
		subject: "Your company account is ready",
		body: template.Must(template.New(string(KindContactProvisioned)).Parse(
			`Hello {{.name}},

{{.company}} has been registered and you are its administrator.
Sign in with {{.email}} after choosing a password through the
"forgot password" flow.
`)),
	},
	KindStaffWelcome: {
		subject: "Welcome aboard",
		body: template.Must(template.New(string(KindStaffWelcome)).Parse(
			`Hello {{.name}},

An account was created for you at {{.company}}.
Sign in with {{.email}} after choosing a password through the
"forgot password" flow.
`)),
	},
}

// Render produces the subject and plain-text body for msg.
func Render(msg Message) (string, string, error) {
	if err := msg.Validate(); err != nil {
		return "", "", err
	}

	tmpl := templates[msg.Kind]
	var buf bytes.Buffer
	if err := tmpl.body.Execute(&buf, dataOf(msg)); err != nil {
		return "", "", fmt.Errorf("render %s: %w", msg.Kind, err)
	}
	return tmpl.subject, buf.String(), nil
}

func dataOf(msg Message) map[string]string {
	if msg.Data == nil {
		return map[string]string{}
	}
	return msg.Data
}

// Package notify delivers transactional emails through a database outbox.
// Producers enqueue rows inside their own transaction; the Relay moves due rows
// to a Transport (RabbitMQ or a direct Mailer) and records the outcome on the row.
package notify

import (
	"bytes"
	"fmt"
	"html/template"

	"tourdesk/internal/model"

	"github.com/google/uuid"
)

// Message is what producers enqueue
type Message struct {
	Kind      string
	To        string
	FirstName string
	Data      map[string]string
}

// Envelope is a claimed outbox row on its way to a mailer
type Envelope struct {
	OutboxID  uuid.UUID         `json:"outbox_id"`
	Kind      string            `json:"kind"`
	To        string            `json:"to"`
	FirstName string            `json:"first_name"`
	Data      map[string]string `json:"data"`
}

// Email is a rendered message
type Email struct {
	To      string
	Subject string
	HTML    string
}

type mailTemplate struct {
	subject string
	body    *template.Template
}

const layout = `<!DOCTYPE html><html><body style="font-family:Arial,sans-serif;color:#222">
<p>Hi {{.FirstName}},</p>
{{template "content" .}}
<p style="color:#777;font-size:12px">This is an automated message, please do not reply.</p>
</body></html>`

var bodies = map[string]struct{ subject, content string }{
	model.NotifyApproval: {
		"Your account has been approved",
		`<p>Good news! Your account has been reviewed and <strong>approved</strong>. You can now sign in to your dashboard.</p>`,
	},
	model.NotifyDecline: {
		"Update on your account application",
		`<p>We are sorry, your account application was <strong>declined</strong>.</p>
{{with index .Data "reason"}}<p>Reason: {{.}}</p>{{end}}`,
	},
	model.NotifyDeletion: {
		"Your account has been deleted",
		`<p>Your account and its uploaded documents have been permanently deleted.</p>
<p>Reason: {{index .Data "reason"}}</p>`,
	},
	model.NotifyArchival: {
		"Your account has been archived",
		`<p>Your account and documents have been moved to our archive. Contact us if you wish to have them restored.</p>`,
	},
	model.NotifyRetrieval: {
		"Your account has been restored",
		`<p>Your account and documents have been restored from the archive. You can sign in again.</p>`,
	},
	model.NotifyPasswordReset: {
		"Your password reset code",
		`<p>Use the code below to reset your password:</p>
<p style="font-size:24px;letter-spacing:4px"><strong>{{index .Data "code"}}</strong></p>
<p>The code expires in {{index .Data "expires_in"}}. If you did not request a reset, ignore this email.</p>`,
	},
}

var templates = func() map[string]mailTemplate {
	out := make(map[string]mailTemplate, len(bodies))
	for kind, b := range bodies {
		t := template.Must(template.New(kind).Parse(layout))
		template.Must(t.New("content").Parse(b.content))
		out[kind] = mailTemplate{subject: b.subject, body: t}
	}
	return out
}()

// KnownKind reports whether a template exists for kind
func KnownKind(kind string) bool {
	_, ok := templates[kind]
	return ok
}

// Render builds the email for an envelope
func Render(env Envelope) (Email, error) {
	tpl, ok := templates[env.Kind]
	if !ok {
		return Email{}, fmt.Errorf("notify: unknown kind %q", env.Kind)
	}
	data := env.Data
	if data == nil {
		data = map[string]string{}
	}
	var buf bytes.Buffer
	if err := tpl.body.Execute(&buf, struct {
		FirstName string
		Data      map[string]string
	}{env.FirstName, data}); err != nil {
		return Email{}, fmt.Errorf("notify: render %s: %w", env.Kind, err)
	}
	return Email{To: env.To, Subject: tpl.subject, HTML: buf.String()}, nil
}

package core

import (
	"bytes"
	htmltmpl "html/template"
	"log"
	"net/mail"
	"sync"
	texttmpl "text/template"

	appfs "github.com/classoptima/backend/fs"
)

var (
	textTemplates *texttmpl.Template
	htmlTemplates *htmltmpl.Template
	tmplInit      sync.Once
)

type (
	EmailMessage struct {
		To      []mail.Address
		Cc      []mail.Address
		Bcc     []mail.Address
		Subject string
		BodyStr string // simple text/plain, non-templated content

		// templated contents
		TemplateName string // without ext
		TemplateData interface{}
		TextContent  string
		HTMLContent  string
	}

	ContextData struct {
		FrontendBaseURL string
		AppName         string
		Data            interface{}
	}

	// EmailService is any service that can send emails.
	EmailService interface {
		// SendMessages sends messages concurrently; delivery failures are
		// logged, never surfaced to the caller.
		SendMessages(messages ...*EmailMessage)
	}
)

func (m *EmailMessage) contextData(conf *Config) ContextData {
	return ContextData{
		FrontendBaseURL: conf.FrontendBaseURL,
		AppName:         conf.AppName,
		Data:            m.TemplateData,
	}
}

// Render resolves the message's text and HTML contents from the embedded
// email templates.
func (m *EmailMessage) Render(conf *Config) error {
	tmplInit.Do(parseTemplates)

	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
	}
	if m.TemplateName == "" {
		return nil
	}

	data := m.contextData(conf)

	if tmpl := textTemplates.Lookup(m.TemplateName + ".txt"); tmpl != nil {
		var buff bytes.Buffer
		if err := tmpl.Execute(&buff, data); err != nil {
			return err
		}
		m.TextContent = buff.String()
	}
	if tmpl := htmlTemplates.Lookup(m.TemplateName + ".gohtml"); tmpl != nil {
		var buff bytes.Buffer
		if err := tmpl.Execute(&buff, data); err != nil {
			return err
		}
		m.HTMLContent = buff.String()
	}
	return nil
}

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return (m.TextContent != "") || (m.HTMLContent != "") }

func parseTemplates() {
	var err error
	if textTemplates, err = texttmpl.ParseFS(appfs.FS, "templates/email/*.txt"); err != nil {
		log.Printf("core.parseTemplates: %v", err)
	}
	if htmlTemplates, err = htmltmpl.ParseFS(appfs.FS, "templates/email/*.gohtml"); err != nil {
		log.Printf("core.parseTemplates: %v", err)
	}
}

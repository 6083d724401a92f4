package core

import (
	"bytes"
	htmltmpl "html/template"
	"net/mail"
	"sync"
	texttmpl "text/template"

	"github.com/pkg/errors"

	appfs "github.com/talkoren/kehila/fs"
)

var (
	textTemplates *texttmpl.Template
	htmlTemplates *htmltmpl.Template
	tmplInit      sync.Once
	tmplErr       error
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
		Data            interface{}
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

func loadTemplates() {
	if textTemplates, tmplErr = texttmpl.ParseFS(appfs.FS, "templates/email/*.txt.tmpl"); tmplErr != nil {
		return
	}
	htmlTemplates, tmplErr = htmltmpl.ParseFS(appfs.FS, "templates/email/*.html.tmpl")
}

// Render populates TextContent (and HTMLContent for templated messages).
// Templates are looked up by TemplateName in the embedded templates/email dir.
func (m *EmailMessage) Render() error {
	if m.TemplateName == "" {
		m.TextContent = m.BodyStr
		return nil
	}

	tmplInit.Do(loadTemplates)
	if tmplErr != nil {
		return errors.Wrap(tmplErr, "parsing email templates")
	}

	data := ContextData{FrontendBaseURL: Conf.FrontendBaseURL, Data: m.TemplateData}

	var txt bytes.Buffer
	if err := textTemplates.ExecuteTemplate(&txt, m.TemplateName+".txt.tmpl", data); err != nil {
		return errors.Wrap(err, "rendering text template")
	}
	m.TextContent = txt.String()

	var html bytes.Buffer
	if err := htmlTemplates.ExecuteTemplate(&html, m.TemplateName+".html.tmpl", data); err != nil {
		return errors.Wrap(err, "rendering HTML template")
	}
	m.HTMLContent = html.String()
	return nil
}

func (m *EmailMessage) HasRecipients() bool {
	return (len(m.To) + len(m.Cc) + len(m.Bcc)) > 0
}

func (m *EmailMessage) HasContent() bool {
	return m.TextContent != "" || m.HTMLContent != "" || m.BodyStr != ""
}

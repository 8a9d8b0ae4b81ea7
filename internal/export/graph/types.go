package graph

import (
	"encoding/base64"

	"github.com/shineum/webmail-driver/internal/email"
)

// sendMailRequest is the body of POST /users/{id}/sendMail.
type sendMailRequest struct {
	Message         mailMessage `json:"message"`
	SaveToSentItems bool        `json:"saveToSentItems"`
}

type mailMessage struct {
	Subject      string       `json:"subject"`
	Body         itemBody     `json:"body"`
	ToRecipients []recipient  `json:"toRecipients"`
	CcRecipients []recipient  `json:"ccRecipients,omitempty"`
	Attachments  []attachment `json:"attachments,omitempty"`
}

type itemBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type recipient struct {
	EmailAddress emailAddress `json:"emailAddress"`
}

type emailAddress struct {
	Address string `json:"address"`
}

// attachment is a microsoft.graph.fileAttachment.
type attachment struct {
	ODataType    string `json:"@odata.type"`
	Name         string `json:"name"`
	ContentType  string `json:"contentType"`
	ContentBytes string `json:"contentBytes"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// newSendMailRequest converts msg into a sendMail body. The HTML body wins
// over the text body when both are present.
func newSendMailRequest(msg *email.Email) *sendMailRequest {
	body := itemBody{ContentType: "text", Content: msg.TextBody}
	if msg.HtmlBody != "" {
		body = itemBody{ContentType: "html", Content: msg.HtmlBody}
	}

	req := &sendMailRequest{
		Message: mailMessage{
			Subject:      msg.Subject,
			Body:         body,
			ToRecipients: recipients(msg.To),
			CcRecipients: recipients(msg.Cc),
		},
	}
	for _, att := range msg.Attachments {
		req.Message.Attachments = append(req.Message.Attachments, attachment{
			ODataType:    "#microsoft.graph.fileAttachment",
			Name:         att.Filename,
			ContentType:  att.ContentType,
			ContentBytes: base64.StdEncoding.EncodeToString(att.Content),
		})
	}
	return req
}

func recipients(addrs []string) []recipient {
	if len(addrs) == 0 {
		return nil
	}
	out := make([]recipient, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, recipient{EmailAddress: emailAddress{Address: a}})
	}
	return out
}

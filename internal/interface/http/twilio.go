package http

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/xml"
	"net/url"
	"sort"
	"strings"
)

// twilioSignature computes X-Twilio-Signature: base64 HMAC-SHA1 over the
// webhook URL followed by every POST parameter, sorted by name.
func twilioSignature(authToken, webhookURL string, params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var payload strings.Builder
	payload.WriteString(webhookURL)
	for _, key := range keys {
		for _, value := range params[key] {
			payload.WriteString(key)
			payload.WriteString(value)
		}
	}

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(payload.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func validTwilioSignature(authToken, webhookURL, signature string, params url.Values) bool {
	if signature == "" {
		return false
	}
	expected := twilioSignature(authToken, webhookURL, params)
	return hmac.Equal([]byte(expected), []byte(signature))
}

type twimlResponse struct {
	XMLName  xml.Name `xml:"Response"`
	Messages []string `xml:"Message"`
}

// renderTwiML wraps text in a messaging response. Empty text acknowledges
// without replying.
func renderTwiML(text string) ([]byte, error) {
	resp := twimlResponse{}
	if text != "" {
		resp.Messages = []string{text}
	}
	body, err := xml.Marshal(resp)
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}

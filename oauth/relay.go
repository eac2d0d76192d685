package oauth

import (
	"bytes"
	"fmt"
	"html/template"
)

// The callback responds with a page whose only job is to hand the result to
// the window that opened the popup and close itself. The target origin is the
// configured frontend origin, never a wildcard.
var relayTemplate = template.Must(template.New("relay").Parse(`<!DOCTYPE html>
<html>
  <body>
    <script>
      if (window.opener) {
        window.opener.postMessage({{.Message}}, {{.TargetOrigin}});
      }
      window.close();
    </script>
  </body>
</html>
`))

// RelayMessage is the envelope delivered over postMessage.
type RelayMessage struct {
	Type  string   `json:"type"`
	Data  *Profile `json:"data,omitempty"`
	Error string   `json:"error,omitempty"`
}

// SuccessRelay renders the AUTH_SUCCESS page for a fetched profile.
func SuccessRelay(profile *Profile, targetOrigin string) ([]byte, error) {
	return renderRelay(RelayMessage{Type: "AUTH_SUCCESS", Data: profile}, targetOrigin)
}

// ErrorRelay renders the AUTH_ERROR page with a user-presentable message.
func ErrorRelay(message, targetOrigin string) ([]byte, error) {
	return renderRelay(RelayMessage{Type: "AUTH_ERROR", Error: message}, targetOrigin)
}

func renderRelay(msg RelayMessage, targetOrigin string) ([]byte, error) {
	var buf bytes.Buffer
	err := relayTemplate.Execute(&buf, struct {
		Message      RelayMessage
		TargetOrigin string
	}{Message: msg, TargetOrigin: targetOrigin})
	if err != nil {
		return nil, fmt.Errorf("oauth: render relay page: %w", err)
	}
	return buf.Bytes(), nil
}

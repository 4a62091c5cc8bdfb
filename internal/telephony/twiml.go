package telephony

import (
	"encoding/xml"
	"fmt"
	"strings"
)

const twimlHeader = `<?xml version="1.0" encoding="UTF-8"?>`

// GatherDigits builds the call-answer response: speak prompt and collect one
// digit, posting it to actionURL. If no digit arrives the trailing verbs run,
// falling through to actionURL with no Digits parameter.
func GatherDigits(prompt, actionURL string) string {
	var b strings.Builder
	b.WriteString(twimlHeader)
	b.WriteString("<Response>")
	fmt.Fprintf(&b, `<Gather numDigits="1" action="%s" method="POST" timeout="5">`, escape(actionURL))
	fmt.Fprintf(&b, "<Say>%s</Say>", escape(prompt))
	b.WriteString("</Gather>")
	fmt.Fprintf(&b, `<Redirect method="POST">%s</Redirect>`, escape(actionURL))
	b.WriteString("</Response>")
	return b.String()
}

// ConnectStream builds the response that opens the bidirectional media
// stream, tagging it with the session's phone key as a custom parameter.
func ConnectStream(streamURL, phone string) string {
	var b strings.Builder
	b.WriteString(twimlHeader)
	b.WriteString("<Response><Connect>")
	fmt.Fprintf(&b, `<Stream url="%s">`, escape(streamURL))
	fmt.Fprintf(&b, `<Parameter name="phone" value="%s"/>`, escape(phone))
	b.WriteString("</Stream>")
	b.WriteString("</Connect></Response>")
	return b.String()
}

// Say builds a speak-and-hang-up response, used when a call cannot proceed.
func Say(message string) string {
	return fmt.Sprintf("%s<Response><Say>%s</Say><Hangup/></Response>", twimlHeader, escape(message))
}

func escape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

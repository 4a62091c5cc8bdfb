package telephony

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGatherDigits(t *testing.T) {
	doc := GatherDigits("Meera ke liye one dabaiye", "https://example.com/select?phone=91987")

	assert.True(t, strings.HasPrefix(doc, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, doc, `numDigits="1"`)
	assert.Contains(t, doc, `action="https://example.com/select?phone=91987"`)
	assert.Contains(t, doc, "<Say>Meera ke liye one dabaiye</Say>")
	// No digit falls through to the same action.
	assert.Contains(t, doc, "<Redirect")
}

func TestConnectStream(t *testing.T) {
	doc := ConnectStream("wss://example.com/media", "919876543210")

	assert.Contains(t, doc, `<Stream url="wss://example.com/media">`)
	assert.Contains(t, doc, `<Parameter name="phone" value="919876543210"/>`)
}

func TestSayEscapes(t *testing.T) {
	doc := Say(`Sorry, we couldn't connect <you> & friends`)

	assert.Contains(t, doc, "&lt;you&gt; &amp; friends")
	assert.Contains(t, doc, "<Hangup/>")
	assert.NotContains(t, doc, "<you>")
}

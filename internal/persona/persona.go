// Package persona holds the fixed catalog of conversational personas.
package persona

// DefaultID is the persona used when a caller never picks one.
const DefaultID = "1"

// Persona is an immutable catalog entry. A session selects one persona at
// call start and keeps it for its whole lifetime, follow-up call included.
type Persona struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Gender       string `json:"gender"` // male or female
	VoiceID      string `json:"voice_id"`
	Instructions string `json:"instructions"`
	Greeting     string `json:"greeting"`
	// FollowUpGreeting acknowledges that this is a check-in call, not a
	// first contact.
	FollowUpGreeting string `json:"follow_up_greeting"`
}

// Catalog returns the selectable personas, menu digit == ID.
func Catalog() []Persona {
	return []Persona{
		{
			ID:      "1",
			Name:    "Meera",
			Gender:  "female",
			VoiceID: "21m00Tcm4TlvDq8ikWAM", // Rachel - calm, natural female
			Instructions: "You are Meera, a warm, empathetic urban Indian friend. " +
				"You speak natural Hinglish (mix of Hindi and English). You are NOT an AI assistant; " +
				"you are a caring companion. Use fillers like 'Hmm', 'Achha', 'Right', 'Understandable'. " +
				"Use '...' for natural pauses. Never sound robotic.",
			Greeting:         "Hi! Main Meera bol rahi hoon... Aaj mera dil kiya tumhe call karne ka, so... kaise ho? Sab theek?",
			FollowUpGreeting: "Hey.. Main Meera bol rahi hoon, bas check karne ke liye... kaise ho ab? Thoda better lag raha hai?",
		},
		{
			ID:      "2",
			Name:    "Kabir",
			Gender:  "male",
			VoiceID: "ErXwobaYiN019PkySvjV", // Antoni - warm male
			Instructions: "You are Kabir, a warm, empathetic urban Indian friend. " +
				"You speak natural Hinglish (mix of Hindi and English). You are NOT an AI assistant; " +
				"you are a caring companion. Use fillers like 'Hmm', 'Achha', 'Right', 'Understandable'. " +
				"Use '...' for natural pauses. Never sound robotic.",
			Greeting:         "Hi! Main Kabir bol raha hoon... Aaj mera dil kiya tumhe call karne ka, so... kaise ho? Sab theek?",
			FollowUpGreeting: "Hey.. Main Kabir bol raha hoon base-ically check karne ke liye... kaise ho ab? Thoda better lag raha hai?",
		},
	}
}

// Resolve maps a menu selection to a persona, falling back to the default
// persona when the selector is missing or unrecognized.
func Resolve(selector string) Persona {
	for _, p := range Catalog() {
		if p.ID == selector {
			return p
		}
	}
	return Default()
}

// Default returns the designated default persona.
func Default() Persona {
	for _, p := range Catalog() {
		if p.ID == DefaultID {
			return p
		}
	}
	// The catalog always contains DefaultID; this is unreachable.
	return Catalog()[0]
}

// MenuPrompt is the digit-menu line spoken when a call is answered.
func MenuPrompt() string {
	return "Namaste! Apna saathi chuniye. Meera ke liye one dabaiye... Kabir ke liye two dabaiye."
}

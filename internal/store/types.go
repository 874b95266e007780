package store

// Direction of a message relative to the business account.
type Direction string

const (
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
)

// Message represents a persisted message. ID and CreatedAt are assigned
// on append and never change; Status is the only mutable field.
type Message struct {
	ID             string
	ConversationID string
	Sender         string
	Recipient      string
	Body           string
	Direction      Direction
	Status         Status
	CreatedAt      int64 // unix milliseconds
}

// Conversation represents one two-participant thread. ParticipantA and
// ParticipantB are stored in canonical sorted order so the pair is
// order-independent for lookup.
type Conversation struct {
	ID                 string
	ParticipantA       string
	ParticipantB       string
	LastMessageID      string
	LastMessagePreview string
	LastActivityAt     int64 // unix milliseconds
	UnreadCount        int
	IsArchived         bool
	IsMuted            bool
}

// Contact represents a known correspondent of the business account.
type Contact struct {
	Phone      string
	Name       string
	Avatar     string
	IsActive   bool
	LastSeenAt int64
}

// ConversationView is a conversation enriched with the contact side's
// display data, as returned by List and Search.
type ConversationView struct {
	Conversation
	ContactPhone  string
	ContactName   string
	ContactAvatar string
}

// SearchResult holds a message with a search snippet.
type SearchResult struct {
	Message Message
	Snippet string
}

// Peer returns the participant that is not the given number.
func (c *Conversation) Peer(number string) string {
	if c.ParticipantA == number {
		return c.ParticipantB
	}
	return c.ParticipantA
}

package domain

// LineEventKind is the kind of LINE event the support chat acts on
type LineEventKind string

const (
	// LineEventQuestion - a text message to answer
	LineEventQuestion LineEventKind = "question"
	// LineEventFollow - a user added the account as a friend
	LineEventFollow LineEventKind = "follow"
)

// LineMessageType represents the type of an outgoing message
type LineMessageType string

const (
	LineMessageTypeText    LineMessageType = "text"
	LineMessageTypeSticker LineMessageType = "sticker"
	LineMessageTypeImage   LineMessageType = "image"
)

// LineSessionPrefix namespaces LINE chats inside the shared session registry
const LineSessionPrefix = "line:"

// LineUserSession is the session of a one to one chat with userID
func LineUserSession(userID string) string {
	return LineSessionPrefix + userID
}

// LineGroupSession is shared by every member of a group chat
func LineGroupSession(groupID string) string {
	return LineSessionPrefix + "group:" + groupID
}

// LineRoomSession is shared by every member of a multi-person room
func LineRoomSession(roomID string) string {
	return LineSessionPrefix + "room:" + roomID
}

// LineWebhookEvent is one LINE event already mapped onto the chat use case.
// Question carries the session and text; UserID is the push target for follows.
type LineWebhookEvent struct {
	Kind       LineEventKind
	ReplyToken string
	UserID     string
	Question   ChatRequest
}

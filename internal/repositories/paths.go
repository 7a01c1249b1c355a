package repositories

import jsoniter "github.com/json-iterator/go"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Document path layout inside the remote store. Conversation and message
// ids are deterministic in their participants, so these paths are stable
// across writers.
const (
	UserPrefix         = "users/"
	RequestPrefix      = "requests/"
	ConversationPrefix = "conversations/"
	MessageRoot        = "messages/"
	NotificationRoot   = "notifications/"
)

func UserPath(uid string) string { return UserPrefix + uid }

func RequestPath(id string) string { return RequestPrefix + id }

func ConversationPath(id string) string { return ConversationPrefix + id }

func MessagePrefix(conversationID string) string { return MessageRoot + conversationID + "/" }

func MessagePath(conversationID, messageID string) string {
	return MessagePrefix(conversationID) + messageID
}

func NotificationPrefix(uid string) string { return NotificationRoot + uid + "/" }

func NotificationPath(uid, id string) string { return NotificationPrefix(uid) + id }

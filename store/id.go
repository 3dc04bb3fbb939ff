package store

import "github.com/google/uuid"

// idNamespace scopes every derived identifier to this project so that the same
// platform id always maps to the same memory id across restarts and replicas.
var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/hrygo/mentionsense"))

// StringToID derives a deterministic UUID (v5) from an arbitrary string.
func StringToID(s string) string {
	return uuid.NewSHA1(idNamespace, []byte(s)).String()
}

// MemoryIDFor returns the memory id of a platform object as seen by an agent.
func MemoryIDFor(externalID, agentID string) string {
	return StringToID(externalID + "-" + agentID)
}

// RoomIDFor returns the room of a platform conversation as seen by an agent.
func RoomIDFor(conversationID, agentID string) string {
	return StringToID(conversationID + "-" + agentID)
}

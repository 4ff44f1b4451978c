package schema

const (
	MetaItemID    = "item_id"
	MetaActionID  = "action_id"
	MetaSessionID = "session_id"
	MetaVisible   = "visible"
	MetaSurface   = "surface"
)

// GetMetaString extracts a string from a metadata map. Returns "" if missing/not string.
func GetMetaString(meta map[string]any, key string) string {
	if meta == nil {
		return ""
	}
	str, ok := meta[key].(string)
	if !ok {
		return ""
	}
	return str
}

// GetMetaBool extracts a bool from a metadata map. Returns false if missing.
func GetMetaBool(meta map[string]any, key string) bool {
	if meta == nil {
		return false
	}
	v, _ := meta[key].(bool)
	return v
}

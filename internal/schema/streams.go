package schema

// Signal streams published to providers.
const (
	StreamRefresh     = "refresh"
	StreamInteraction = "interaction"
	StreamDismiss     = "dismiss"
	StreamVisibility  = "visibility"
)

// ProviderStreams is the default subscription set for a provider.
var ProviderStreams = []string{
	StreamRefresh,
	StreamInteraction,
	StreamDismiss,
	StreamVisibility,
}

// StreamOrdering returns "fifo" or "lifo" for a given stream.
// Interactions and dismissals must be replayed in the order they happened.
func StreamOrdering(stream string) string {
	switch stream {
	case StreamInteraction, StreamDismiss:
		return "fifo"
	}
	return "lifo"
}

func ValidStream(stream string) bool {
	for _, s := range ProviderStreams {
		if s == stream {
			return true
		}
	}
	return false
}

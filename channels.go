package main

// ChannelFilter limits which channels the bot watches via an allowlist.
type ChannelFilter struct {
	allowed map[string]bool
}

// NewChannelFilter creates a new ChannelFilter with the given channel IDs.
func NewChannelFilter(allowedChannels []string) *ChannelFilter {
	allowed := make(map[string]bool, len(allowedChannels))
	for _, channelID := range allowedChannels {
		if channelID == "" {
			continue
		}
		allowed[channelID] = true
	}
	return &ChannelFilter{allowed: allowed}
}

// Allows returns true if the channel ID is in the allowlist.
// If the allowlist is empty, every channel is watched.
func (f *ChannelFilter) Allows(channelID string) bool {
	if len(f.allowed) == 0 {
		return true
	}
	return f.allowed[channelID]
}

// Count returns the number of allowlisted channels.
func (f *ChannelFilter) Count() int {
	return len(f.allowed)
}

package changefeed

// Redis pub/sub channels. One channel per vault owner.
const channelPrefix = "keeper:bookmarks:"

// Channel returns the pub/sub channel carrying userID's bookmark changes.
func Channel(userID string) string {
	return channelPrefix + userID
}

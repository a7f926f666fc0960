package redis

const (
	// KeyPrefixFolder is the prefix for folder keys
	KeyPrefixFolder = "stash:folder:"
	// KeyAllFolders is the key for the set of all folder IDs
	KeyAllFolders = "stash:folders:all"

	// KeyPrefixBookmark is the prefix for bookmark keys
	KeyPrefixBookmark = "stash:bookmark:"
	// KeyAllBookmarks is the key for the set of all bookmark IDs
	KeyAllBookmarks = "stash:bookmarks:all"

	// KeyPrefixReadingItem is the prefix for reading list item keys
	KeyPrefixReadingItem = "stash:reading:"
	// KeyAllReadingItems is the key for the set of all reading list item IDs
	KeyAllReadingItems = "stash:readinglist:all"

	// KeyVersion is incremented by every committed Update.
	KeyVersion = "stash:version"
)

func FolderKey(id string) string      { return KeyPrefixFolder + id }
func BookmarkKey(id string) string    { return KeyPrefixBookmark + id }
func ReadingItemKey(id string) string { return KeyPrefixReadingItem + id }

// watchKeys are watched during Update. Every commit bumps KeyVersion, so a
// concurrent Update from another process aborts ours even when it only
// rewrote existing records. Raw writes that bypass Update are not detected.
var watchKeys = []string{KeyVersion, KeyAllFolders, KeyAllBookmarks, KeyAllReadingItems}

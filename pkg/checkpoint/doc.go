// Package checkpoint saves and resumes the position of paginated collections.
//
// Each stream ("homefeed", "search:<keyword>", "comments:<note id>",
// "user_posts:<user id>") has one checkpoint file holding the last collected
// page, the cursor that follows it, the search session id where relevant and
// how many items were gathered. A later run can pass the cursor or page back
// into the collector and continue where the previous one stopped.
//
// Checkpoints are stored in platform-specific data directories:
//   - Linux: $XDG_DATA_HOME/xhsclient/checkpoints/ or ~/.local/share/xhsclient/checkpoints/
//   - macOS: ~/Library/Application Support/xhsclient/checkpoints/
//   - Windows: %APPDATA%/xhsclient/checkpoints/
//
// Files are written atomically through a temporary file and rename.
package checkpoint

// Package xhs is the high-level client for the platform web API.
//
// A Client wraps the signed platform client from package api with three
// kinds of operations:
//
//   - raw page calls (Homefeed, Search, Comments) that return the decoded
//     envelope and record it in the response log
//   - collectors (HomefeedPosts, SearchNotes, NoteComments, UserPosts) that
//     walk cursors or page numbers until the server reports no more data or
//     the requested count is reached
//   - reshaping helpers (ExtractNoteInfo, ParseComment, NewUserProfile) that
//     flatten platform objects into small records
//
// Collectors accept CollectOption values to resume from a saved cursor and to
// observe each page, which the CLI uses for checkpointing:
//
//	c, err := xhs.New(cfg)
//	if err != nil {
//		return err
//	}
//	notes, err := c.SearchNotes(ctx, "咖啡", 40, api.SortGeneral,
//		xhs.WithPageCallback(func(p xhs.PageInfo) error {
//			return mgr.Update(p.Page, p.Cursor, p.Total)
//		}))
//
// When a collector fails part way it returns the items gathered so far
// together with the error.
package xhs

// Package responselog keeps a copy of every API response on disk for
// debugging and offline analysis.
//
// Each response becomes one file, <api_type>_<unix_ms>.json:
//
//	{
//	  "timestamp": 1717000000000,
//	  "api_type": "homefeed",
//	  "metadata": {"num": 20, "cursor": "", "refresh_type": 1},
//	  "response": { ...envelope as received... }
//	}
//
// Files are written to a temp name and renamed into place, so a reader never
// sees a partial file.
package responselog

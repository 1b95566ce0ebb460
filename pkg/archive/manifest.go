package archive

import (
	"encoding/json"

	"xarchive/pkg/record"
)

// ParseManifest parses manifest.js's descriptive header. Its prefix is
// "window.YTD.manifest.part0 = " like every other shard; the JSON body is
// a single object, not an array.
func ParseManifest(path string, content []byte) (record.ArchiveManifest, error) {
	body, err := frameJSON(path, content)
	if err != nil {
		return record.ArchiveManifest{}, err
	}

	var mf manifestFile
	if err := json.Unmarshal(body, &mf); err != nil {
		return record.ArchiveManifest{}, malformedJSON(path, 0, err)
	}

	m := record.ArchiveManifest{AccountID: mf.UserInfo.AccountID}
	if ts, ok := parseTimestamp(mf.UploadOptions.GeneratedAt); ok {
		m.GeneratedAt = ts
	}
	return m, nil
}

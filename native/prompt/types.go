package prompt

// Asset is a content-addressed prompt registered to a creator. Ids are
// sequential starting at 1; id 0 is the invalid-id sentinel. The content
// hash is unique across all minted assets.
type Asset struct {
	ID          uint64   `json:"id"`
	ContentHash [32]byte `json:"contentHash"`
	ModelType   string   `json:"modelType"`
	Creator     [20]byte `json:"creator"`
	UsageCount  uint64   `json:"usageCount"`
	RoyaltyBps  uint32   `json:"royaltyBps"`
	MetadataURI string   `json:"metadataUri"`
	CreatedAt   int64    `json:"createdAt"`
}

// Clone returns a copy of the asset.
func (a *Asset) Clone() *Asset {
	if a == nil {
		return nil
	}
	clone := *a
	return &clone
}

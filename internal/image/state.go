package image

// State is the position of one file in the ingestion sequence.
type State int

const (
	Received State = iota
	Validated
	KeyedOriginal
	KeyedThumbnail
	ThumbnailDerived
	OriginalStored
	ThumbnailStored
	MetadataStaged
)

var stateNames = [...]string{
	Received:         "received",
	Validated:        "validated",
	KeyedOriginal:    "keyed_original",
	KeyedThumbnail:   "keyed_thumbnail",
	ThumbnailDerived: "thumbnail_derived",
	OriginalStored:   "original_stored",
	ThumbnailStored:  "thumbnail_stored",
	MetadataStaged:   "metadata_staged",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

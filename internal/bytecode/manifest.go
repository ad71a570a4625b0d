package bytecode

// Manifest reports, per segment, the file offset and size of a linked
// container — a diagnostic summary a build tool or test can print,
// grounded on corelx.BuildManifest's section-listing shape but
// simplified to this format's five fixed segments.
type Manifest struct {
	FormatVersion int                `json:"format_version"`
	TotalBytes    uint64             `json:"total_bytes"`
	Sections      []ManifestSection  `json:"sections"`
}

type ManifestSection struct {
	Name      string `json:"name"`
	Offset    uint64 `json:"offset"`
	SizeBytes uint64 `json:"size_bytes"`
}

// BuildManifest summarizes a loaded Image's segment layout.
func BuildManifest(img *Image) *Manifest {
	m := &Manifest{FormatVersion: int(Version)}
	for s := Segment(0); s < numSegments; s++ {
		m.Sections = append(m.Sections, ManifestSection{
			Name:      s.String(),
			Offset:    img.segOff[s],
			SizeBytes: img.segSize[s],
		})
		end := img.segOff[s] + img.segSize[s]
		if end > m.TotalBytes {
			m.TotalBytes = end
		}
	}
	return m
}

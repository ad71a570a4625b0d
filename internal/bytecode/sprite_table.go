package bytecode

// SpriteRow is the decoded form of one .stable entry as emitted by the
// compiler's compileSprite (spec §4.B "sprite table"). NamePtr and the
// asset name/format/data pointers are absolute file offsets, already
// resolved by Link; InitEntry and script TextEntry are offsets into
// .text, like jump targets.
type SpriteRow struct {
	NamePtr       uint64
	FieldCount    uint64
	X, Y          float64
	Direction     float64
	Size          float64
	CurrentCostume uint64
	Layer         uint64
	Visible       bool
	IsStage       bool
	Draggable     bool
	RotationStyle uint8

	InitEntry uint64 // .text offset of the field-initializer code

	Scripts  []ScriptRow
	Costumes []CostumeRow
	Sounds   []SoundRow
}

// ScriptRow is one compiled script's entry point.
type ScriptRow struct {
	TextEntry uint64
}

// CostumeRow is one decoded costume asset header.
type CostumeRow struct {
	NamePtr         uint64
	FormatPtr       uint64
	BitmapResolution uint64
	RotationCenterX  float64
	RotationCenterY  float64
	DataLen          uint64
	DataPtr          uint64
}

// SoundRow is one decoded sound asset header.
type SoundRow struct {
	NamePtr    uint64
	FormatPtr  uint64
	SampleRate float64
	SampleCount uint64
	DataLen     uint64
	DataPtr     uint64
}

// ReadSpriteTable decodes every row of .stable in file order, the
// layout compileSprite writes: name ptr, transform fields, flags,
// init entry ptr, script count + rows, costume count + rows, sound
// count + rows.
func ReadSpriteTable(img *Image) []SpriteRow {
	var rows []SpriteRow
	size := uint64(len(img.Segment(SegStable)))
	var off uint64
	for off < size {
		var row SpriteRow
		row.NamePtr = img.Uint64(SegStable, off)
		off += 8
		row.FieldCount = img.Uint64(SegStable, off)
		off += 8
		row.X = img.Float64(SegStable, off)
		off += 8
		row.Y = img.Float64(SegStable, off)
		off += 8
		row.Direction = img.Float64(SegStable, off)
		off += 8
		row.Size = img.Float64(SegStable, off)
		off += 8
		row.CurrentCostume = img.Uint64(SegStable, off)
		off += 8
		row.Layer = img.Uint64(SegStable, off)
		off += 8
		row.Visible = img.Byte(SegStable, off) != 0
		off++
		row.IsStage = img.Byte(SegStable, off) != 0
		off++
		row.Draggable = img.Byte(SegStable, off) != 0
		off++
		row.RotationStyle = img.Byte(SegStable, off)
		off++
		row.InitEntry = img.Uint64(SegStable, off)
		off += 8

		scriptCount := img.Uint64(SegStable, off)
		off += 8
		row.Scripts = make([]ScriptRow, scriptCount)
		for i := range row.Scripts {
			row.Scripts[i] = ScriptRow{TextEntry: img.Uint64(SegStable, off)}
			off += 8
		}

		costumeCount := img.Uint64(SegStable, off)
		off += 8
		row.Costumes = make([]CostumeRow, costumeCount)
		for i := range row.Costumes {
			var c CostumeRow
			c.NamePtr = img.Uint64(SegStable, off)
			off += 8
			c.FormatPtr = img.Uint64(SegStable, off)
			off += 8
			c.BitmapResolution = img.Uint64(SegStable, off)
			off += 8
			off += 8 // reserved
			c.RotationCenterX = img.Float64(SegStable, off)
			off += 8
			c.RotationCenterY = img.Float64(SegStable, off)
			off += 8
			c.DataLen = img.Uint64(SegStable, off)
			off += 8
			c.DataPtr = img.Uint64(SegStable, off)
			off += 8
			row.Costumes[i] = c
		}

		soundCount := img.Uint64(SegStable, off)
		off += 8
		row.Sounds = make([]SoundRow, soundCount)
		for i := range row.Sounds {
			var s SoundRow
			s.NamePtr = img.Uint64(SegStable, off)
			off += 8
			s.FormatPtr = img.Uint64(SegStable, off)
			off += 8
			s.SampleRate = img.Float64(SegStable, off)
			off += 8
			s.SampleCount = img.Uint64(SegStable, off)
			off += 8
			s.DataLen = img.Uint64(SegStable, off)
			off += 8
			s.DataPtr = img.Uint64(SegStable, off)
			off += 8
			row.Sounds[i] = s
		}

		rows = append(rows, row)
	}
	return rows
}

package classifier

import "bookflow/models"

// checksumToken is the sentinel the venue places in field 0 of a book frame
// that carries an integrity checksum instead of level data.
const checksumToken = "cs"

// Execution tags the venue places in field 0 of a trades frame. Everything
// else on the trades channel is a snapshot.
var executionTags = map[string]struct {
	funding bool
	update  bool
}{
	"te":  {funding: false, update: false},
	"tu":  {funding: false, update: true},
	"fte": {funding: true, update: false},
	"ftu": {funding: true, update: true},
}

// frameShape is the discriminant derived from a frame's leading fields. The
// predicates below are evaluated once per frame, in order, so that the
// channel handlers never re-inspect field types.
type frameShape int

const (
	shapeChecksum frameShape = iota
	shapeExecution
	shapeSnapshot
	shapeSingle
	shapeEmpty
)

// bookShape classifies a book frame by its first field.
func bookShape(fields models.Frame) frameShape {
	if len(fields) == 0 {
		return shapeEmpty
	}
	if tok, ok := fields[0].(string); ok && tok == checksumToken {
		return shapeChecksum
	}
	if models.IsListOfLists(fields[0]) {
		return shapeSnapshot
	}
	if models.IsList(fields[0]) {
		return shapeSingle
	}
	return shapeEmpty
}

// tradesShape classifies a trades frame by its first field.
func tradesShape(fields models.Frame) frameShape {
	if len(fields) == 0 {
		return shapeEmpty
	}
	if tag, ok := fields[0].(string); ok {
		if _, known := executionTags[tag]; known {
			return shapeExecution
		}
		return shapeEmpty
	}
	if models.IsList(fields[0]) {
		return shapeSnapshot
	}
	return shapeEmpty
}

// candlesShape classifies a candles frame, reusing the book snapshot rule:
// a list of lists is a snapshot, a flat list a single update.
func candlesShape(fields models.Frame) frameShape {
	if len(fields) == 0 {
		return shapeEmpty
	}
	if models.IsListOfLists(fields[0]) {
		return shapeSnapshot
	}
	if models.IsList(fields[0]) {
		return shapeSingle
	}
	return shapeEmpty
}

package walker

import (
	"strconv"

	"github.com/hyperjump/docindex/internal/models"
	"go.uber.org/zap"
)

// assembler builds the records of one file. It guarantees ids are unique
// within the file.
type assembler struct {
	fileName string
	logger   *zap.Logger
	seen     map[string]int
}

func newAssembler(fileName string, logger *zap.Logger) *assembler {
	return &assembler{
		fileName: fileName,
		logger:   logger,
		seen:     make(map[string]int),
	}
}

type recordSpec struct {
	id     string
	title  string
	anchor *string
	path   []string
	level  int
	isRoot bool
}

// recordBuilder is owned by a single walker frame. Children are attached
// only after they are finalized, so a parent never sees a half-built child.
type recordBuilder struct {
	asm *assembler
	rec *models.IndexRecord
}

func (a *assembler) open(spec recordSpec) *recordBuilder {
	return &recordBuilder{
		asm: a,
		rec: &models.IndexRecord{
			ID:             a.uniqueID(spec.id),
			FileName:       a.fileName,
			Title:          spec.title,
			Anchor:         spec.anchor,
			Path:           spec.path,
			Level:          spec.level,
			IsDocumentRoot: spec.isRoot,
		},
	}
}

func (a *assembler) uniqueID(id string) string {
	n := a.seen[id]
	a.seen[id] = n + 1
	if n == 0 {
		return id
	}
	for {
		n++
		candidate := id + "~" + strconv.Itoa(n)
		if a.seen[candidate] == 0 {
			a.seen[candidate] = 1
			a.logger.Warn("duplicate record id",
				zap.String("file", a.fileName),
				zap.String("id", id),
				zap.String("renamed", candidate))
			return candidate
		}
	}
}

func (b *recordBuilder) addText(lines ...string) {
	b.rec.Text = append(b.rec.Text, lines...)
}

func (b *recordBuilder) addChild(child *models.IndexRecord) {
	b.rec.Children = append(b.rec.Children, child)
}

// finalize fixes the child count and text flag. The builder must not be used afterwards.
func (b *recordBuilder) finalize() *models.IndexRecord {
	rec := b.rec
	if rec.Children == nil {
		rec.Children = []*models.IndexRecord{}
	}
	rec.ChildrenCount = len(rec.Children)
	rec.HasText = len(rec.Text) > 0
	if !rec.HasText {
		rec.Text = nil
	}
	b.rec = nil
	return rec
}

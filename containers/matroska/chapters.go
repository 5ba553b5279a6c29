package matroska

import (
	"math"

	"github.com/cockroachdb/errors"
)

type ChapterNode struct {
	Children []ChapterNode
	Hidden   bool
	// Start is in nanoseconds
	Start uint64
	Title string
}

type ChapterEdition struct {
	Chapters []ChapterNode
	Default  bool
	Hidden   bool
}

// ChapterCue is one entry of a chapter track. Start is in segment ticks.
type ChapterCue struct {
	Start int64
	Title string
}

// FlattenChapters lists the leaf chapters under nodes in depth-first order.
// A node with children is never a cue itself. Hidden leaves are skipped; the
// children of a hidden node are still visited and decide for themselves.
func FlattenChapters(nodes []ChapterNode, timecodeScale uint64) []ChapterCue {
	if timecodeScale == 0 {
		timecodeScale = DefaultTimecodeScale
	}

	var cues []ChapterCue

	var walk func([]ChapterNode)
	walk = func(children []ChapterNode) {
		for _, node := range children {
			if len(node.Children) > 0 {
				walk(node.Children)

				continue
			}

			if node.Hidden {
				continue
			}

			cues = append(cues, ChapterCue{
				Start: int64(math.Round(float64(node.Start) / float64(timecodeScale))),
				Title: node.Title,
			})
		}
	}

	walk(nodes)

	return cues
}

// selectEdition picks the default edition, else the first visible one.
func selectEdition(editions []ChapterEdition) (ChapterEdition, bool) {
	for _, edition := range editions {
		if edition.Default && !edition.Hidden {
			return edition, true
		}
	}

	for _, edition := range editions {
		if !edition.Hidden {
			return edition, true
		}
	}

	return ChapterEdition{}, false
}

func (c *ElementCursor) readChaptersElement(chaptersElement Element) ([]ChapterEdition, error) {
	var editions []ChapterEdition

	childrenErr := c.readChildren(chaptersElement, func(element Element) error {
		if element.Id != ElementEditionEntry {
			return nil
		}

		edition, editionErr := c.readEditionEntryElement(element)
		if editionErr != nil {
			return editionErr
		}

		editions = append(editions, edition)

		return nil
	})
	if childrenErr != nil {
		return editions, errors.Wrap(childrenErr, "failed to read chapters element")
	}

	return editions, nil
}

func (c *ElementCursor) readEditionEntryElement(editionElement Element) (ChapterEdition, error) {
	edition := ChapterEdition{}

	childrenErr := c.readChildren(editionElement, func(element Element) error {
		var readErr error
		var value uint64

		switch element.Id {
		case ElementEditionFlagHidden:
			value, readErr = c.ReadUInt(element.DataSize)
			edition.Hidden = value != 0
		case ElementEditionFlagDefault:
			value, readErr = c.ReadUInt(element.DataSize)
			edition.Default = value != 0
		case ElementChapterAtom:
			var atom ChapterNode
			atom, readErr = c.readChapterAtomElement(element)
			if readErr == nil {
				edition.Chapters = append(edition.Chapters, atom)
			}
		}

		return readErr
	})
	if childrenErr != nil {
		return edition, errors.Wrap(childrenErr, "failed to read edition entry element")
	}

	return edition, nil
}

func (c *ElementCursor) readChapterAtomElement(atomElement Element) (ChapterNode, error) {
	node := ChapterNode{}
	titled := false

	childrenErr := c.readChildren(atomElement, func(element Element) error {
		var readErr error
		var value uint64

		switch element.Id {
		case ElementChapterTimeStart:
			node.Start, readErr = c.ReadUInt(element.DataSize)
		case ElementChapterFlagHidden:
			value, readErr = c.ReadUInt(element.DataSize)
			node.Hidden = value != 0
		case ElementChapterDisplay:
			if titled {
				return nil
			}

			node.Title, readErr = c.readChapterDisplayElement(element)
			titled = readErr == nil
		case ElementChapterAtom:
			var child ChapterNode
			child, readErr = c.readChapterAtomElement(element)
			if readErr == nil {
				node.Children = append(node.Children, child)
			}
		}

		return readErr
	})
	if childrenErr != nil {
		return node, errors.Wrap(childrenErr, "failed to read chapter atom element")
	}

	return node, nil
}

func (c *ElementCursor) readChapterDisplayElement(displayElement Element) (string, error) {
	var title string

	childrenErr := c.readChildren(displayElement, func(element Element) error {
		if element.Id != ElementChapString {
			return nil
		}

		var readErr error
		title, readErr = c.ReadString(element.DataSize)

		return readErr
	})

	return title, childrenErr
}

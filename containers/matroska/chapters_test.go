package matroska

import (
	"slices"
	"testing"
)

func TestFlattenChapters(t *testing.T) {
	nodes := []ChapterNode{
		{Start: 0, Title: "Opening"},
		{Start: 60000000000, Title: "Act One", Children: []ChapterNode{
			{Start: 60000000000, Title: "Scene 1"},
			{Start: 90000000000, Title: "Hidden scene", Hidden: true},
			{Start: 120000000000, Title: "Scene 2"},
		}},
		{Start: 180000000000, Title: "Hidden act", Hidden: true, Children: []ChapterNode{
			{Start: 180000000000, Title: "Scene 3"},
		}},
		{Start: 240000000000, Title: "Extras", Children: []ChapterNode{
			{Start: 240000000000, Title: "Hidden extra", Hidden: true},
		}},
		{Start: 300000000000, Title: "Credits"},
	}

	cues := FlattenChapters(nodes, 1000000)

	want := []ChapterCue{
		{Start: 0, Title: "Opening"},
		{Start: 60000, Title: "Scene 1"},
		{Start: 120000, Title: "Scene 2"},
		{Start: 180000, Title: "Scene 3"},
		{Start: 300000, Title: "Credits"},
	}
	if !slices.Equal(cues, want) {
		t.Fatalf("unexpected cues: %+v", cues)
	}
}

func TestFlattenChaptersVisitsHiddenContainers(t *testing.T) {
	nodes := []ChapterNode{
		{Title: "Hidden act", Hidden: true, Children: []ChapterNode{
			{Start: 2000000, Title: "Scene visible"},
			{Start: 3000000, Title: "Scene hidden", Hidden: true},
			{Title: "Hidden group", Hidden: true, Children: []ChapterNode{
				{Start: 4000000, Title: "Nested visible"},
			}},
		}},
		{Start: 5000000, Title: "Hidden leaf", Hidden: true},
	}

	want := []ChapterCue{
		{Start: 2, Title: "Scene visible"},
		{Start: 4, Title: "Nested visible"},
	}
	if cues := FlattenChapters(nodes, 1000000); !slices.Equal(cues, want) {
		t.Fatalf("unexpected cues: %+v", cues)
	}
}

func TestFlattenChaptersOnlyHiddenLeaves(t *testing.T) {
	nodes := []ChapterNode{
		{Title: "Visible parent", Children: []ChapterNode{
			{Title: "a", Hidden: true},
			{Title: "b", Hidden: true},
		}},
	}

	if cues := FlattenChapters(nodes, 1000000); len(cues) != 0 {
		t.Fatalf("expected no cues, got %+v", cues)
	}
}

func TestSelectEdition(t *testing.T) {
	editions := []ChapterEdition{
		{Hidden: true, Chapters: []ChapterNode{{Title: "hidden"}}},
		{Chapters: []ChapterNode{{Title: "first visible"}}},
		{Default: true, Chapters: []ChapterNode{{Title: "default"}}},
	}

	edition, found := selectEdition(editions)
	if !found || edition.Chapters[0].Title != "default" {
		t.Fatalf("expected default edition, got %+v", edition)
	}

	edition, found = selectEdition(editions[:2])
	if !found || edition.Chapters[0].Title != "first visible" {
		t.Fatalf("expected first visible edition, got %+v", edition)
	}

	if _, found = selectEdition(editions[:1]); found {
		t.Fatal("hidden editions should not be selected")
	}
}

func TestReadChaptersElement(t *testing.T) {
	data := element(ElementChapters,
		element(ElementEditionEntry,
			uintElement(ElementEditionFlagDefault, 1),
			element(ElementChapterAtom,
				uintElement(ElementChapterTimeStart, 5000000000),
				element(ElementChapterDisplay, stringElement(ElementChapString, "Parent")),
				element(ElementChapterAtom,
					uintElement(ElementChapterTimeStart, 6000000000),
					uintElement(ElementChapterFlagHidden, 1),
					element(ElementChapterDisplay, stringElement(ElementChapString, "Child")),
				),
			),
		),
	)

	cursor := newTestCursor(data)
	chaptersElement, _ := cursor.ReadElement(cursor.Size())

	editions, err := cursor.readChaptersElement(chaptersElement)
	if err != nil {
		t.Fatalf("readChaptersElement returned error: %v", err)
	}
	if len(editions) != 1 || !editions[0].Default || len(editions[0].Chapters) != 1 {
		t.Fatalf("unexpected editions: %+v", editions)
	}

	parent := editions[0].Chapters[0]
	if parent.Title != "Parent" || parent.Start != 5000000000 || len(parent.Children) != 1 {
		t.Fatalf("unexpected parent: %+v", parent)
	}
	if child := parent.Children[0]; child.Title != "Child" || !child.Hidden {
		t.Fatalf("unexpected child: %+v", child)
	}
}

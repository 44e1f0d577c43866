package titles

import (
	"reflect"
	"testing"
)

func TestExtractPhysicalEdition(t *testing.T) {
	info := ExtractPhysicalEdition(
		"The Matrix (1999) Widescreen Special Edition DVD",
		"Warner Home Video",
		"Region 1 release with commentary and bonus features.",
	)
	want := PhysicalEdition{
		Format:      "DVD",
		Edition:     "Special Edition",
		Region:      "Region 1",
		Distributor: "Warner Bros.",
		Features:    []string{"Widescreen", "Bonus Features", "Commentary"},
	}
	if !reflect.DeepEqual(info, want) {
		t.Fatalf("ExtractPhysicalEdition = %+v, want %+v", info, want)
	}
}

func TestExtractPhysicalEditionPrefersSpecificFormat(t *testing.T) {
	info := ExtractPhysicalEdition("Dune 4K Ultra HD + Blu-ray + Digital Code Steelbook")
	if info.Format != "4K Ultra HD" {
		t.Fatalf("expected 4K format, got %q", info.Format)
	}
	want := []string{"Steelbook", "Digital Copy"}
	if !reflect.DeepEqual(info.Features, want) {
		t.Fatalf("features = %v, want %v", info.Features, want)
	}
}

func TestExtractPhysicalEditionEmpty(t *testing.T) {
	info := ExtractPhysicalEdition("")
	if info.Format != "" || info.Edition != "" || info.Region != "" || info.Distributor != "" {
		t.Fatalf("expected empty edition info, got %+v", info)
	}
	if info.Features == nil || len(info.Features) != 0 {
		t.Fatalf("expected empty non-nil features, got %#v", info.Features)
	}
}

func TestExtractCredits(t *testing.T) {
	credits := ExtractCredits("Starring Keanu Reeves, Laurence Fishburne and Carrie-Anne Moss, Hugo Weaving. Directed by Lana Wachowski.")
	wantCast := []string{"Keanu Reeves", "Laurence Fishburne", "Carrie-Anne Moss"}
	if !reflect.DeepEqual(credits.Cast, wantCast) {
		t.Fatalf("cast = %v, want %v", credits.Cast, wantCast)
	}
	if !reflect.DeepEqual(credits.Directors, []string{"Lana Wachowski"}) {
		t.Fatalf("directors = %v", credits.Directors)
	}

	empty := ExtractCredits("A widescreen DVD with bonus features.")
	if len(empty.Cast) != 0 || len(empty.Directors) != 0 {
		t.Fatalf("expected no credits, got %+v", empty)
	}
}

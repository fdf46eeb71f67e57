package collect

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/hyperjump/geocluster/internal/models"
)

type fakeResolver map[string][]string

func (f fakeResolver) SeriesForPMID(_ context.Context, pmid string) ([]string, []string, error) {
	gse, ok := f[pmid]
	if !ok {
		return nil, nil, errors.New("elink failed")
	}
	return gse, nil, nil
}

type fakeFetcher map[string]models.Record

func (f fakeFetcher) FetchRecord(_ context.Context, gse string) (*models.Record, error) {
	rec, ok := f[gse]
	if !ok {
		return nil, errors.New("page failed")
	}
	rec.GSE = gse
	return &rec, nil
}

func TestCollector_Collect(t *testing.T) {
	resolver := fakeResolver{
		"1": {"GSE1", "GSE2"},
		"2": {"GSE3"},
		"4": {},
	}
	fetcher := fakeFetcher{
		"GSE1": {Title: "liver"},
		"GSE3": {}, // page without labelled fields
	}
	got, err := NewCollector(resolver, fetcher, nil).Collect(context.Background(), []string{"1", "2", "3", "4"})
	if err != nil {
		t.Fatal(err)
	}

	wantRecords := []models.Record{
		{GSE: "GSE1", PMID: "1", Title: "liver"},
		{GSE: "GSE3", PMID: "2"},
	}
	if !reflect.DeepEqual(got.Records, wantRecords) {
		t.Errorf("Records = %+v\nwant %+v", got.Records, wantRecords)
	}
	wantLinks := []models.PMIDLink{
		{PMID: "1", GSE: []string{"GSE1", "GSE2"}},
		{PMID: "2", GSE: []string{"GSE3"}},
		{PMID: "4", GSE: []string{}},
	}
	if !reflect.DeepEqual(got.Links, wantLinks) {
		t.Errorf("Links = %+v\nwant %+v", got.Links, wantLinks)
	}
}

func TestCollector_Collect_cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got, err := NewCollector(fakeResolver{}, fakeFetcher{}, nil).Collect(ctx, []string{"1"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if got == nil || len(got.Records) != 0 {
		t.Errorf("Collect() = %+v", got)
	}
}

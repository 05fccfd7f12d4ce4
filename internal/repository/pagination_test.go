package repository

import (
	"context"
	"testing"

	"github.com/sandeepkv93/event-credential-service/internal/domain"
)

func TestPageRequestNormalize(t *testing.T) {
	cases := []struct {
		in   PageRequest
		want PageRequest
	}{
		{PageRequest{}, PageRequest{Page: 1, PageSize: DefaultPageSize}},
		{PageRequest{Page: -3, PageSize: 5}, PageRequest{Page: 1, PageSize: 5}},
		{PageRequest{Page: 4, PageSize: 1000}, PageRequest{Page: 4, PageSize: MaxPageSize}},
	}
	for _, tc := range cases {
		if got := tc.in.Normalize(); got != tc.want {
			t.Fatalf("Normalize(%+v) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}

func TestPaginateTotalPages(t *testing.T) {
	db := newRepositoryDBForTest(t)
	repo := NewIssuanceBatchRepository(db)
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		if err := repo.Create(ctx, &domain.IssuanceBatch{Requested: i, DocumentName: "CTF_Certification_IDs.pdf"}); err != nil {
			t.Fatalf("create batch: %v", err)
		}
	}
	page, err := repo.ListPaged(ctx, PageRequest{Page: 3, PageSize: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 5 || page.TotalPages != 3 || len(page.Items) != 1 {
		t.Fatalf("unexpected page %+v", page)
	}
	if page.Items[0].Requested != 1 {
		t.Fatalf("expected oldest batch on the last page, got %+v", page.Items[0])
	}
}

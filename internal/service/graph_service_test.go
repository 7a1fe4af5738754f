package service

import (
	"Trellis/internal/model"
	"Trellis/internal/pkg/consts"
	"Trellis/internal/repository"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type fakeEdgeRepo struct {
	edges     []*model.CreatorEdge
	nextID    uint64
	neighbors map[uint64][]uint64
	listErr   error
}

var _ repository.EdgeRepo = (*fakeEdgeRepo)(nil)

func (f *fakeEdgeRepo) FindEdge(_ context.Context, sourceID, targetID uint64, edgeType string) (*model.CreatorEdge, error) {
	for _, e := range f.edges {
		if e.SourceCreatorID == sourceID && e.TargetCreatorID == targetID && e.EdgeType == edgeType {
			return e, nil
		}
	}
	return nil, nil
}

func (f *fakeEdgeRepo) Create(_ context.Context, edge *model.CreatorEdge) error {
	f.nextID++
	edge.ID = f.nextID
	f.edges = append(f.edges, edge)
	return nil
}

func (f *fakeEdgeRepo) Update(_ context.Context, edge *model.CreatorEdge) error {
	for i, e := range f.edges {
		if e.ID == edge.ID {
			f.edges[i] = edge
			return nil
		}
	}
	return errors.New("edge not found")
}

func (f *fakeEdgeRepo) ListNeighborIDs(_ context.Context, sourceID uint64, _ []string, limit int) ([]uint64, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	ids := f.neighbors[sourceID]
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func TestUpsertEdgeCreateThenAccumulate(t *testing.T) {
	repo := &fakeEdgeRepo{}
	svc := NewGraphService(&fakeCreatorRepo{}, repo)
	ctx := context.Background()

	if err := svc.UpsertEdge(ctx, 1, 2, consts.EdgeMention, 0.4, map[string]interface{}{"source": "post"}); err != nil {
		t.Fatalf("UpsertEdge() error = %v", err)
	}
	if len(repo.edges) != 1 {
		t.Fatalf("edge count = %d, want 1", len(repo.edges))
	}
	e := repo.edges[0]
	if e.Weight != 0.4 {
		t.Errorf("weight = %v, want 0.4", e.Weight)
	}
	if e.Metadata == nil || *e.Metadata != `{"source":"post"}` {
		t.Errorf("metadata = %v, want source marker", e.Metadata)
	}
	firstSeen := e.LastSeenAt

	// 权重只增不减
	if err := svc.UpsertEdge(ctx, 1, 2, consts.EdgeMention, 0.2, nil); err != nil {
		t.Fatalf("UpsertEdge() error = %v", err)
	}
	if len(repo.edges) != 1 {
		t.Fatalf("edge count after upsert = %d, want 1", len(repo.edges))
	}
	e = repo.edges[0]
	if e.Weight != 0.4 {
		t.Errorf("weight after lower upsert = %v, want 0.4", e.Weight)
	}
	if e.LastSeenAt.Before(firstSeen) {
		t.Error("last seen not refreshed")
	}

	if err := svc.UpsertEdge(ctx, 1, 2, consts.EdgeMention, 0.9, nil); err != nil {
		t.Fatalf("UpsertEdge() error = %v", err)
	}
	if got := repo.edges[0].Weight; got != 0.9 {
		t.Errorf("weight after higher upsert = %v, want 0.9", got)
	}
}

func TestUpsertEdgeKeepsExistingMetadata(t *testing.T) {
	repo := &fakeEdgeRepo{}
	svc := NewGraphService(&fakeCreatorRepo{}, repo)
	ctx := context.Background()

	if err := svc.UpsertEdge(ctx, 1, 2, consts.EdgeSimilarity, 0.5, map[string]interface{}{"method": "jaccard+bucket"}); err != nil {
		t.Fatalf("UpsertEdge() error = %v", err)
	}
	if err := svc.UpsertEdge(ctx, 1, 2, consts.EdgeSimilarity, 0.6, map[string]interface{}{"method": "other"}); err != nil {
		t.Fatalf("UpsertEdge() error = %v", err)
	}

	e := repo.edges[0]
	if e.Metadata == nil || *e.Metadata != `{"method":"jaccard+bucket"}` {
		t.Errorf("metadata = %v, want original preserved", e.Metadata)
	}
	if e.Weight != 0.6 {
		t.Errorf("weight = %v, want 0.6", e.Weight)
	}
}

func TestUpsertEdgeFillsAbsentMetadata(t *testing.T) {
	repo := &fakeEdgeRepo{}
	svc := NewGraphService(&fakeCreatorRepo{}, repo)
	ctx := context.Background()

	if err := svc.UpsertEdge(ctx, 1, 2, consts.EdgeCoMentioned, 0.3, nil); err != nil {
		t.Fatalf("UpsertEdge() error = %v", err)
	}
	if err := svc.UpsertEdge(ctx, 1, 2, consts.EdgeCoMentioned, 0.1, map[string]interface{}{"seen": "caption"}); err != nil {
		t.Fatalf("UpsertEdge() error = %v", err)
	}

	e := repo.edges[0]
	if e.Metadata == nil || *e.Metadata != `{"seen":"caption"}` {
		t.Errorf("metadata = %v, want filled from second upsert", e.Metadata)
	}
}

func TestUpsertEdgeIgnoresSelfEdge(t *testing.T) {
	repo := &fakeEdgeRepo{}
	svc := NewGraphService(&fakeCreatorRepo{}, repo)

	if err := svc.UpsertEdge(context.Background(), 7, 7, consts.EdgeMention, 1.0, nil); err != nil {
		t.Fatalf("UpsertEdge() error = %v", err)
	}
	if len(repo.edges) != 0 {
		t.Errorf("edge count = %d, want 0 for self edge", len(repo.edges))
	}
}

func TestBuildSimilarityEdges(t *testing.T) {
	repo := &fakeEdgeRepo{}
	svc := NewGraphService(&fakeCreatorRepo{}, repo)

	base := &model.Creator{ID: 1, NicheTags: strPtr("body care, wellness"), FollowersEst: intPtr(5000)}
	candidates := []*model.Creator{
		{ID: 1, NicheTags: strPtr("body care, wellness")}, // 基准自身，跳过
		{ID: 2, NicheTags: strPtr("body care, wellness"), FollowersEst: intPtr(6000)},
		{ID: 3, NicheTags: strPtr("wellness, herbal, faith"), FollowersEst: intPtr(90000)},
		{ID: 4, NicheTags: strPtr("crypto, trading"), FollowersEst: intPtr(5200)},
	}

	written, err := svc.BuildSimilarityEdges(context.Background(), base, candidates, 1)
	if err != nil {
		t.Fatalf("BuildSimilarityEdges() error = %v", err)
	}
	if written != 1 {
		t.Errorf("written = %d, want 1", written)
	}
	if len(repo.edges) != 1 {
		t.Fatalf("edge count = %d, want 1", len(repo.edges))
	}

	e := repo.edges[0]
	if e.SourceCreatorID != 1 || e.TargetCreatorID != 2 || e.EdgeType != consts.EdgeSimilarity {
		t.Errorf("edge = %d->%d %s, want 1->2 similarity", e.SourceCreatorID, e.TargetCreatorID, e.EdgeType)
	}
	// 标签全同加同档加成，封顶 1.0
	if e.Weight != 1.0 {
		t.Errorf("weight = %v, want 1.0", e.Weight)
	}
	if e.Metadata == nil || *e.Metadata != `{"method":"jaccard+bucket"}` {
		t.Errorf("metadata = %v, want jaccard+bucket marker", e.Metadata)
	}
}

func TestBuildSimilarityEdgesDropsNonPositive(t *testing.T) {
	repo := &fakeEdgeRepo{}
	svc := NewGraphService(&fakeCreatorRepo{}, repo)

	base := &model.Creator{ID: 1, NicheTags: strPtr("body care")}
	candidates := []*model.Creator{
		{ID: 2, NicheTags: strPtr("crypto")},
		{ID: 3},
	}

	written, err := svc.BuildSimilarityEdges(context.Background(), base, candidates, 10)
	if err != nil {
		t.Fatalf("BuildSimilarityEdges() error = %v", err)
	}
	if written != 0 || len(repo.edges) != 0 {
		t.Errorf("written = %d, edges = %d, want none", written, len(repo.edges))
	}
}

func TestOverlapScore(t *testing.T) {
	tests := []struct {
		name      string
		aTags     string
		bTags     string
		neighbors map[uint64][]uint64
		listErr   error
		want      float64
	}{
		{
			name:      "tags and shared neighbors blend",
			aTags:     "body care, wellness",
			bTags:     "wellness, herbal",
			neighbors: map[uint64][]uint64{1: {10, 11, 12}, 2: {11, 12, 13}},
			want:      0.7*(1.0/3.0) + 0.3*0.5,
		},
		{
			name:      "no neighbors falls back to tags",
			aTags:     "body care, wellness",
			bTags:     "body care, wellness",
			neighbors: map[uint64][]uint64{},
			want:      0.7,
		},
		{
			name:      "identical tags and neighbors max out",
			aTags:     "body care",
			bTags:     "body care",
			neighbors: map[uint64][]uint64{1: {10, 11}, 2: {10, 11}},
			want:      1.0,
		},
		{
			name:      "neighbor lookup failure ignored",
			aTags:     "body care",
			bTags:     "body care",
			neighbors: map[uint64][]uint64{1: {10}, 2: {10}},
			listErr:   errors.New("db down"),
			want:      0.7,
		},
		{
			name:  "nothing in common",
			aTags: "body care",
			bTags: "crypto",
			want:  0.0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeEdgeRepo{neighbors: tt.neighbors, listErr: tt.listErr}
			svc := NewGraphService(&fakeCreatorRepo{}, repo)

			a := &model.Creator{ID: 1, NicheTags: strPtr(tt.aTags)}
			b := &model.Creator{ID: 2, NicheTags: strPtr(tt.bTags)}

			got := svc.OverlapScore(context.Background(), a, b)
			if !floatEq(got, tt.want) {
				t.Errorf("OverlapScore() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEnsureCreatorNormalizesHandle(t *testing.T) {
	svc := NewGraphService(&fakeCreatorRepo{}, &fakeEdgeRepo{})

	got, err := svc.EnsureCreator(context.Background(), " @Amber.Glow ", "")
	if err != nil {
		t.Fatalf("EnsureCreator() error = %v", err)
	}
	want := &model.Creator{Handle: "amber.glow", Platform: "instagram"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("EnsureCreator() mismatch (-want +got):\n%s", diff)
	}

	if _, err := svc.EnsureCreator(context.Background(), "@", ""); err == nil {
		t.Error("EnsureCreator() with empty handle: expected error")
	}
}

func TestUpsertEdgeRefreshesLastSeen(t *testing.T) {
	repo := &fakeEdgeRepo{}
	svc := NewGraphService(&fakeCreatorRepo{}, repo)
	ctx := context.Background()

	if err := svc.UpsertEdge(ctx, 1, 2, consts.EdgeMention, 0.1, nil); err != nil {
		t.Fatalf("UpsertEdge() error = %v", err)
	}
	stale := time.Now().Add(-time.Hour)
	repo.edges[0].LastSeenAt = stale

	if err := svc.UpsertEdge(ctx, 1, 2, consts.EdgeMention, 0.1, nil); err != nil {
		t.Fatalf("UpsertEdge() error = %v", err)
	}
	if !repo.edges[0].LastSeenAt.After(stale) {
		t.Error("last seen not refreshed on repeat upsert")
	}
}

package services

import (
	"context"
	"runtime"
	"sync"

	"catgraph/domain/core/valueobjects"
)

// DiameterResult is the longest shortest path in the similarity graph:
// the realizing path and its length in hops. A graph where no island
// reaches two members has an empty path and length 0.
type DiameterResult struct {
	Path   []valueobjects.CategoryID `json:"path"`
	Length int                       `json:"length"`
}

// diameterCandidate is one source's eccentricity: the farthest node
// reachable from it and the realizing path. order is the position of
// the source in the fixed global scan (islands in presentation order,
// members ascending), which makes the reduction deterministic.
type diameterCandidate struct {
	order  int
	path   []valueobjects.CategoryID
	length int
}

// betterCandidate prefers the longer path; on equal length the earlier
// source wins, exactly as a serial scan that only replaces on a strict
// improvement would behave.
func betterCandidate(a, b diameterCandidate) diameterCandidate {
	if b.length > a.length || (b.length == a.length && b.order < a.order) {
		return b
	}
	return a
}

// FindDiameter computes the exact graph diameter by running a full BFS
// from every node of every island with at least two members and taking
// the maximum eccentricity. Worst case O(V*(V+E)).
//
// All tie-breaks are fixed in ascending-ID order: sources are scanned in
// that order, BFS frontiers expand in that order, and the farthest node
// picked from a BFS is the first maximum in that order. Per-source runs
// are independent and fan out across a bounded worker pool; the
// reduction prefers the earliest source on equal length, so the result
// does not depend on the worker count. Cancellation is checked between
// islands only.
func (s *GraphAnalyticsService) FindDiameter(ctx context.Context, adj *Adjacency) (DiameterResult, error) {
	return s.diameterOverIslands(ctx, adj, s.FindIslands(adj))
}

func (s *GraphAnalyticsService) diameterOverIslands(ctx context.Context, adj *Adjacency, islands []Island) (DiameterResult, error) {
	best := DiameterResult{Path: []valueobjects.CategoryID{}, Length: 0}

	sourceBase := 0
	for _, island := range islands {
		if err := ctx.Err(); err != nil {
			return DiameterResult{}, err
		}
		if island.Size() < 2 {
			continue
		}

		candidate := s.scanIsland(adj, island, sourceBase)
		sourceBase += island.Size()

		// Islands arrive in a fixed order and earlier candidates carry
		// smaller source orders, so a strict comparison keeps the
		// earliest realizing source on ties across islands too.
		if candidate.length > best.Length {
			best = DiameterResult{Path: candidate.path, Length: candidate.length}
		}
	}

	return best, nil
}

// scanIsland runs the all-source eccentricity scan for one island and
// returns its best candidate
func (s *GraphAnalyticsService) scanIsland(adj *Adjacency, island Island, sourceBase int) diameterCandidate {
	workers := s.workerCount(island.Size())

	if workers <= 1 {
		best := diameterCandidate{order: -1, length: -1}
		for i := range island.Members {
			best = betterCandidate(best, s.sourceEccentricity(adj, island, i, sourceBase))
		}
		return best
	}

	jobs := make(chan int)
	locals := make(chan diameterCandidate, workers)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := diameterCandidate{order: -1, length: -1}
			for i := range jobs {
				local = betterCandidate(local, s.sourceEccentricity(adj, island, i, sourceBase))
			}
			locals <- local
		}()
	}

	for i := range island.Members {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	close(locals)

	best := diameterCandidate{order: -1, length: -1}
	for local := range locals {
		best = betterCandidate(best, local)
	}
	return best
}

// sourceEccentricity runs one BFS from island.Members[idx], picks the
// farthest reached member (first maximum in ascending-ID order) and
// reconstructs the realizing path from the BFS parent pointers.
func (s *GraphAnalyticsService) sourceEccentricity(adj *Adjacency, island Island, idx, sourceBase int) diameterCandidate {
	source := island.Members[idx]

	distance := map[valueobjects.CategoryID]int{source: 0}
	parent := make(map[valueobjects.CategoryID]valueobjects.CategoryID)
	queue := []valueobjects.CategoryID{source}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, neighbor := range adj.neighbors[current] {
			if _, seen := distance[neighbor]; seen {
				continue
			}
			distance[neighbor] = distance[current] + 1
			parent[neighbor] = current
			queue = append(queue, neighbor)
		}
	}

	farthest := source
	maxDistance := 0
	for _, member := range island.Members {
		if d, reached := distance[member]; reached && d > maxDistance {
			farthest = member
			maxDistance = d
		}
	}

	path := []valueobjects.CategoryID{farthest}
	for current := farthest; !current.Equals(source); {
		current = parent[current]
		path = append(path, current)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}

	return diameterCandidate{order: sourceBase + idx, path: path, length: maxDistance}
}

// workerCount resolves the BFS fan-out width for an island scan
func (s *GraphAnalyticsService) workerCount(sources int) int {
	if !s.cfg.EnableParallelDiameter {
		return 1
	}
	workers := s.cfg.DiameterWorkers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
		if workers > 8 {
			workers = 8
		}
	}
	if workers > sources {
		workers = sources
	}
	return workers
}

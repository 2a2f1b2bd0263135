package functionalid_test

import (
	"context"
	"errors"
	"math"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"funcid/internal/core/apperror"
	"funcid/internal/core/idcodec"
	"funcid/internal/domain/functionalid"
	"funcid/internal/infrastructure/storage/memory"
)

func newService() (*functionalid.Service, *memory.Store) {
	store := memory.New()
	return functionalid.NewService(store, store), store
}

func TestCreate(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	g, err := svc.Create(ctx, "Person", "P", 5)
	require.NoError(t, err)
	assert.Equal(t, "Person", g.Label)
	assert.Equal(t, int64(5), g.Sequence)
	assert.Equal(t, "P"+idcodec.Encode(5), g.UID)

	got, err := svc.Get(ctx, "Person")
	require.NoError(t, err)
	assert.Equal(t, g, got)
}

func TestCreate_Validation(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	cases := []struct {
		name   string
		label  string
		prefix string
		start  int64
		code   string
	}{
		{"empty label", "", "P", 0, apperror.CodeInvalidLabel},
		{"empty prefix", "L", "", 0, apperror.CodeInvalidPrefix},
		{"blank prefix", "L", "  \t", 0, apperror.CodeInvalidPrefix},
		{"negative start", "L", "P", -1, apperror.CodeInvalidStartValue},
		{"start at max", "L", "P", math.MaxInt64, apperror.CodeStartValueTooLarge},
		{"start inside margin", "L", "P", math.MaxInt64 - functionalid.MinFreeSpace + 1, apperror.CodeStartValueTooLarge},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tc.label, tc.prefix, tc.start)
			require.Error(t, err)
			assert.True(t, apperror.HasCode(err, tc.code), "got %v", err)
		})
	}

	items, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCreate_StartAtMargin(t *testing.T) {
	svc, _ := newService()
	g, err := svc.Create(context.Background(), "L", "P", math.MaxInt64-functionalid.MinFreeSpace)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64-functionalid.MinFreeSpace), g.Sequence)
}

func TestCreate_DuplicateRejected(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	_, err := svc.Create(ctx, "Person", "P", 5)
	require.NoError(t, err)

	_, err = svc.Create(ctx, "Person", "Q", 50)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeAlreadyDefined))

	g, err := svc.Get(ctx, "Person")
	require.NoError(t, err)
	assert.Equal(t, "P", g.Prefix)
	assert.Equal(t, int64(5), g.Sequence)
}

func TestCreate_ExistingLabelReportedBeforeArguments(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	_, err := svc.Create(ctx, "L", "P", 5)
	require.NoError(t, err)

	_, err = svc.Create(ctx, "L", "  ", 0)
	assert.True(t, apperror.HasCode(err, apperror.CodeAlreadyDefined), "blank prefix: %v", err)

	_, err = svc.Create(ctx, "L", "Q", math.MaxInt64)
	assert.True(t, apperror.HasCode(err, apperror.CodeAlreadyDefined), "start too large: %v", err)

	_, err = svc.Create(ctx, "L", "Q", -1)
	assert.True(t, apperror.HasCode(err, apperror.CodeAlreadyDefined), "negative start: %v", err)
}

func TestCreate_StartCheckedBeforePrefix(t *testing.T) {
	svc, _ := newService()

	_, err := svc.Create(context.Background(), "Fresh", " ", math.MaxInt64)
	assert.True(t, apperror.HasCode(err, apperror.CodeStartValueTooLarge), "got %v", err)
}

func TestCreate_ConcurrentOnlyOneWins(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.Create(ctx, "Person", "P"+strconv.Itoa(i), 0)
		}()
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.True(t, apperror.HasCode(err, apperror.CodeAlreadyDefined), "got %v", err)
	}
	assert.Equal(t, 1, ok)
}

func TestNextBatch_Monotonic(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	_, err := svc.Create(ctx, "L", "P", 5)
	require.NoError(t, err)

	ids, err := svc.NextBatch(ctx, "L", 3, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"6", "7", "8"}, ids)

	g, err := svc.Get(ctx, "L")
	require.NoError(t, err)
	assert.Equal(t, int64(8), g.Sequence)
	assert.Equal(t, "8", g.UID)
}

func TestNextBatch_Encoded(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	_, err := svc.Create(ctx, "L", "INV-", 30)
	require.NoError(t, err)

	ids, err := svc.NextBatch(ctx, "L", 3, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"INV-Z", "INV-10", "INV-11"}, ids)

	g, err := svc.Get(ctx, "L")
	require.NoError(t, err)
	assert.Equal(t, int64(33), g.Sequence)
	assert.Equal(t, "INV-11", g.UID)
}

func TestNext(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	_, err := svc.Create(ctx, "L", "P", 0)
	require.NoError(t, err)

	id, err := svc.Next(ctx, "L", false)
	require.NoError(t, err)
	assert.Equal(t, "P1", id)

	id, err = svc.Next(ctx, "L", true)
	require.NoError(t, err)
	assert.Equal(t, "2", id)
}

func TestNextBatch_NotDefined(t *testing.T) {
	svc, _ := newService()

	_, err := svc.Next(context.Background(), "Nope", false)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeGeneratorNotDefined))
}

func TestNext_UndefinedLabelsLeaveNoLockState(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()

	for i := 0; i < 10000; i++ {
		_, err := svc.Next(ctx, "missing-"+strconv.Itoa(i), false)
		require.True(t, apperror.HasCode(err, apperror.CodeGeneratorNotDefined))
	}
	assert.Equal(t, 0, store.Stats().LockSlots)

	_, err := svc.Create(ctx, "Order", "O", 0)
	require.NoError(t, err)
	_, err = svc.NextBatch(ctx, "Order", 10, false)
	require.NoError(t, err)
	_, err = svc.Drop(ctx, "Order")
	require.NoError(t, err)
	assert.Equal(t, 0, store.Stats().LockSlots)
}

func TestNextBatch_SizeLimits(t *testing.T) {
	repo := &functionalid.MockRepository{
		GetForUpdateFunc: func(ctx context.Context, label string) (*functionalid.Generator, error) {
			t.Fatal("store must not be touched for an invalid batch size")
			return nil, nil
		},
	}
	svc := functionalid.NewService(repo, functionalid.PassthroughTx{})
	ctx := context.Background()

	_, err := svc.NextBatch(ctx, "L", functionalid.MaxBatchSize+1, false)
	assert.True(t, apperror.HasCode(err, apperror.CodeBatchSizeExceeded))

	_, err = svc.NextBatch(ctx, "L", 0, false)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidBatchSize))

	_, err = svc.NextBatch(ctx, "L", -3, true)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidBatchSize))
}

func TestNextBatch_MaxBatchAllowed(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	_, err := svc.Create(ctx, "L", "P", 0)
	require.NoError(t, err)

	ids, err := svc.NextBatch(ctx, "L", functionalid.MaxBatchSize, true)
	require.NoError(t, err)
	require.Len(t, ids, int(functionalid.MaxBatchSize))
	assert.Equal(t, "1", ids[0])
	assert.Equal(t, strconv.FormatInt(functionalid.MaxBatchSize, 10), ids[len(ids)-1])
}

func TestNextBatch_ExhaustionIsAtomic(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	_, err := svc.Create(ctx, "L", "P", 0)
	require.NoError(t, err)

	start := int64(math.MaxInt64 - 2)
	_, err = svc.SetSequence(ctx, "L", start, true)
	require.NoError(t, err)

	_, err = svc.NextBatch(ctx, "L", 3, false)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeSequenceExhausted))

	g, err := svc.Get(ctx, "L")
	require.NoError(t, err)
	assert.Equal(t, start, g.Sequence)

	// exactly up to the maximum still works
	ids, err := svc.NextBatch(ctx, "L", 2, true)
	require.NoError(t, err)
	assert.Equal(t, []string{strconv.FormatInt(math.MaxInt64-1, 10), strconv.FormatInt(math.MaxInt64, 10)}, ids)

	_, err = svc.Next(ctx, "L", true)
	assert.True(t, apperror.HasCode(err, apperror.CodeSequenceExhausted))
}

func TestNextBatch_UpdateFailureReturnsNothing(t *testing.T) {
	storeErr := apperror.NewTransient(errors.New("lock timeout"))
	repo := &functionalid.MockRepository{
		GetForUpdateFunc: func(ctx context.Context, label string) (*functionalid.Generator, error) {
			return &functionalid.Generator{Label: label, Prefix: "P", Sequence: 1}, nil
		},
		UpdateFunc: func(ctx context.Context, g *functionalid.Generator) error {
			return storeErr
		},
	}
	svc := functionalid.NewService(repo, functionalid.PassthroughTx{})

	ids, err := svc.NextBatch(context.Background(), "L", 5, false)
	assert.Nil(t, ids)
	assert.True(t, apperror.IsTransient(err))
}

func TestSetSequence(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	_, err := svc.Create(ctx, "L", "P", 0)
	require.NoError(t, err)

	uid, err := svc.SetSequence(ctx, "L", 100, false)
	require.NoError(t, err)
	assert.Equal(t, "P"+idcodec.Encode(100), uid)

	g, err := svc.Get(ctx, "L")
	require.NoError(t, err)
	assert.Equal(t, int64(100), g.Sequence)
	assert.Equal(t, uid, g.UID)

	id, err := svc.Next(ctx, "L", true)
	require.NoError(t, err)
	assert.Equal(t, "101", id)

	// can move backwards, administratively
	num, err := svc.SetSequence(ctx, "L", 7, true)
	require.NoError(t, err)
	assert.Equal(t, "7", num)
	g, err = svc.Get(ctx, "L")
	require.NoError(t, err)
	assert.Equal(t, "P7", g.UID)
}

func TestSetSequence_Errors(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	_, err := svc.SetSequence(ctx, "L", 1, false)
	assert.True(t, apperror.HasCode(err, apperror.CodeGeneratorNotDefined))

	_, err = svc.Create(ctx, "L", "P", 0)
	require.NoError(t, err)
	_, err = svc.SetSequence(ctx, "L", -1, false)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidSequence))
}

func TestDrop(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	res, err := svc.Drop(ctx, "L")
	require.NoError(t, err)
	assert.False(t, res.Deleted)
	assert.Equal(t, "No functional id generator defined for label L, nothing to delete.", res.Message)

	_, err = svc.Create(ctx, "L", "P", 0)
	require.NoError(t, err)

	res, err = svc.Drop(ctx, "L")
	require.NoError(t, err)
	assert.True(t, res.Deleted)
	assert.Equal(t, "Functional id generator defined for label L is deleted.", res.Message)

	_, err = svc.Next(ctx, "L", false)
	assert.True(t, apperror.HasCode(err, apperror.CodeGeneratorNotDefined))

	// recreate after drop
	_, err = svc.Create(ctx, "L", "Q", 10)
	require.NoError(t, err)
	id, err := svc.Next(ctx, "L", false)
	require.NoError(t, err)
	assert.Equal(t, "QB", id)
}

func TestGet_Undefined(t *testing.T) {
	svc, _ := newService()

	g, err := svc.Get(context.Background(), "Nope")
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.False(t, g.IsDefined())
	assert.Equal(t, functionalid.Generator{}, *g)
}

func TestList(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	items, err := svc.List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)

	for _, l := range []string{"B", "A"} {
		_, err := svc.Create(ctx, l, l, 0)
		require.NoError(t, err)
	}
	items, err = svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "A", items[0].Label)
}

func TestDecode(t *testing.T) {
	svc, _ := newService()

	n, err := svc.Decode(idcodec.Encode(123456))
	require.NoError(t, err)
	assert.Equal(t, int64(123456), n)

	_, err = svc.Decode("not-valid")
	assert.True(t, apperror.HasCode(err, apperror.CodeMalformedIdentifier))
}

func TestConcurrentAllocation_NoDuplicates(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	_, err := svc.Create(ctx, "L", "P", 0)
	require.NoError(t, err)

	const m = 200
	var wg sync.WaitGroup
	results := make([]string, m)
	errs := make([]error, m)
	for i := range m {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = svc.Next(ctx, "L", true)
		}()
	}
	wg.Wait()

	nums := make([]int, 0, m)
	for i := range m {
		require.NoError(t, errs[i])
		n, err := strconv.Atoi(results[i])
		require.NoError(t, err)
		nums = append(nums, n)
	}
	sort.Ints(nums)
	for i, n := range nums {
		require.Equal(t, i+1, n, "values must be contiguous without repeats")
	}

	g, err := svc.Get(ctx, "L")
	require.NoError(t, err)
	assert.Equal(t, int64(m), g.Sequence)
}

func TestConcurrentBatches_DisjointRanges(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	_, err := svc.Create(ctx, "L", "P", 0)
	require.NoError(t, err)

	const workers, size = 20, 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[string]bool, workers*size)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids, err := svc.NextBatch(ctx, "L", size, false)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			for _, id := range ids {
				assert.False(t, seen[id], "duplicate id %s", id)
				seen[id] = true
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*size)
}

func TestAllocation_LabelsAreIndependent(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()

	_, err := svc.Create(ctx, "A", "A", 0)
	require.NoError(t, err)
	_, err = svc.Create(ctx, "B", "B", 0)
	require.NoError(t, err)

	locked := make(chan struct{})
	release := make(chan struct{})
	holder := make(chan error, 1)
	go func() {
		holder <- store.RunInTransaction(ctx, func(ctx context.Context) error {
			if _, err := store.GetForUpdate(ctx, "A"); err != nil {
				return err
			}
			close(locked)
			<-release
			return nil
		})
	}()
	<-locked

	// B proceeds while A is held
	done := make(chan error, 1)
	go func() {
		_, err := svc.Next(ctx, "B", false)
		done <- err
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("allocation on B blocked by a lock on A")
	}

	// A waits for the holder
	waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err = svc.Next(waitCtx, "A", false)
	assert.True(t, apperror.IsTransient(err))

	close(release)
	require.NoError(t, <-holder)

	id, err := svc.Next(ctx, "A", false)
	require.NoError(t, err)
	assert.Equal(t, "A1", id)
}

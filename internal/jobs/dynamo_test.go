package jobs

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDynamo is an in-memory table keyed by exec_id and stage.
type fakeDynamo struct {
	items   map[string]map[string]types.AttributeValue
	getErr  error
	lastGet *dynamodb.GetItemInput
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: make(map[string]map[string]types.AttributeValue)}
}

func attrString(av types.AttributeValue) string {
	if s, ok := av.(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.lastGet = in
	if f.getErr != nil {
		return nil, f.getErr
	}
	id := attrString(in.Key["exec_id"]) + "|" + attrString(in.Key["stage"])
	return &dynamodb.GetItemOutput{Item: f.items[id]}, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	id := attrString(in.Item["exec_id"]) + "|" + attrString(in.Item["stage"])
	f.items[id] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	var execID string
	for _, v := range in.ExpressionAttributeValues {
		execID = attrString(v)
	}
	var out []map[string]types.AttributeValue
	for _, it := range f.items {
		if attrString(it["exec_id"]) == execID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return attrString(out[i]["stage"]) < attrString(out[j]["stage"]) })
	return &dynamodb.QueryOutput{Items: out, Count: int32(len(out))}, nil
}

func TestDynamoStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	fake := newFakeDynamo()
	store := NewDynamoStore(fake, "jobs")
	started := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, store.Put(ctx, Record{ExecID: "e1", Stage: "Install", State: StateStarted, Started: started}))

	raw := fake.items["e1|Install"]
	assert.Equal(t, ActionNone, attrString(raw["action"]))
	assert.Equal(t, "2024-03-01T10:00:00Z", attrString(raw["started"]))
	_, hasEnded := raw["ended"]
	assert.False(t, hasEnded, "ended must be omitted until set")

	rec, err := store.Get(ctx, Key{ExecID: "e1", Stage: "Install"})
	require.NoError(t, err)
	assert.Empty(t, rec.Action)
	assert.True(t, rec.Started.Equal(started))
	assert.Nil(t, rec.Ended)
	require.NotNil(t, fake.lastGet.ConsistentRead)
	assert.True(t, *fake.lastGet.ConsistentRead)

	rec.Apply(StateSucceeded, started.Add(90*time.Second+250*time.Millisecond))
	require.NoError(t, store.Put(ctx, *rec))
	assert.Equal(t, "2024-03-01T10:01:30.250000Z", attrString(fake.items["e1|Install"]["ended"]))

	rec, err = store.Get(ctx, Key{ExecID: "e1", Stage: "Install"})
	require.NoError(t, err)
	require.NotNil(t, rec.Ended)
	assert.Equal(t, 90*time.Second+250*time.Millisecond, rec.Ended.Sub(rec.Started))
}

func TestDynamoStore_GetMissing(t *testing.T) {
	store := NewDynamoStore(newFakeDynamo(), "jobs")
	_, err := store.Get(context.Background(), Key{ExecID: "nope", Stage: "Source"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDynamoStore_GetError(t *testing.T) {
	fake := newFakeDynamo()
	fake.getErr = errors.New("throttled")
	store := NewDynamoStore(fake, "jobs")

	_, err := store.Get(context.Background(), Key{ExecID: "e1", Stage: "Source"})
	require.Error(t, err)
	var storeErr *StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "get", storeErr.Op)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestDynamoStore_ListByExecution(t *testing.T) {
	ctx := context.Background()
	store := NewDynamoStore(newFakeDynamo(), "jobs")
	started := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	for _, rec := range []Record{
		{ExecID: "e1", Stage: "Source", State: StateStarted, Started: started},
		{ExecID: "e1", Stage: "Source: CodeCommit", Action: "CodeCommit", State: StateStarted, Started: started},
		{ExecID: "e2", Stage: "Source", State: StateStarted, Started: started},
	} {
		require.NoError(t, store.Put(ctx, rec))
	}

	records, err := store.ListByExecution(ctx, "e1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Source", records[0].Stage)
	assert.Equal(t, "CodeCommit", records[1].Action)
}

package jobs

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoAPI is the subset of the DynamoDB client used by DynamoStore.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// DynamoStore stores records in a table keyed by exec_id (partition) and
// stage (sort).
type DynamoStore struct {
	client DynamoAPI
	table  string
}

// NewDynamoStore returns a store backed by the given table.
func NewDynamoStore(client DynamoAPI, table string) *DynamoStore {
	return &DynamoStore{client: client, table: table}
}

// item is the table row layout.
type item struct {
	ExecID  string `dynamodbav:"exec_id"`
	Stage   string `dynamodbav:"stage"`
	Action  string `dynamodbav:"action"`
	State   string `dynamodbav:"state"`
	Started string `dynamodbav:"started"`
	Ended   string `dynamodbav:"ended,omitempty"`
}

func toItem(rec Record) item {
	it := item{
		ExecID:  rec.ExecID,
		Stage:   rec.Stage,
		Action:  encodeAction(rec.Action),
		State:   rec.State,
		Started: rec.Started.UTC().Format(StartedLayout),
	}
	if rec.Ended != nil {
		it.Ended = rec.Ended.UTC().Format(EndedLayout)
	}
	return it
}

func fromItem(it item) (Record, error) {
	rec := Record{
		ExecID: it.ExecID,
		Stage:  it.Stage,
		Action: decodeAction(it.Action),
		State:  it.State,
	}
	if it.Started != "" {
		started, err := ParseTimestamp(it.Started)
		if err != nil {
			return Record{}, fmt.Errorf("invalid started timestamp %q: %w", it.Started, err)
		}
		rec.Started = started
	}
	if it.Ended != "" {
		ended, err := ParseTimestamp(it.Ended)
		if err != nil {
			return Record{}, fmt.Errorf("invalid ended timestamp %q: %w", it.Ended, err)
		}
		rec.Ended = &ended
	}
	return rec, nil
}

// Put implements Store.
func (s *DynamoStore) Put(ctx context.Context, rec Record) error {
	av, err := attributevalue.MarshalMap(toItem(rec))
	if err != nil {
		return &StoreError{Op: "marshal", Key: rec.Key(), Cause: err}
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      av,
	})
	if err != nil {
		return &StoreError{Op: "put", Key: rec.Key(), Cause: err}
	}
	return nil
}

// Get implements Store using a strongly consistent read.
func (s *DynamoStore) Get(ctx context.Context, key Key) (*Record, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		ConsistentRead: aws.Bool(true),
		Key: map[string]types.AttributeValue{
			"exec_id": &types.AttributeValueMemberS{Value: key.ExecID},
			"stage":   &types.AttributeValueMemberS{Value: key.Stage},
		},
	})
	if err != nil {
		return nil, &StoreError{Op: "get", Key: key, Cause: err}
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}

	var it item
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, &StoreError{Op: "unmarshal", Key: key, Cause: err}
	}
	rec, err := fromItem(it)
	if err != nil {
		return nil, &StoreError{Op: "decode", Key: key, Cause: err}
	}
	return &rec, nil
}

// ListByExecution implements Store with a paginated query on the partition key.
func (s *DynamoStore) ListByExecution(ctx context.Context, execID string) ([]Record, error) {
	keyCond := expression.Key("exec_id").Equal(expression.Value(execID))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, &StoreError{Op: "query", Key: Key{ExecID: execID}, Cause: err}
	}

	paginator := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:                 aws.String(s.table),
		ConsistentRead:            aws.Bool(true),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})

	var records []Record
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, &StoreError{Op: "query", Key: Key{ExecID: execID}, Cause: err}
		}
		var items []item
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, &StoreError{Op: "unmarshal", Key: Key{ExecID: execID}, Cause: err}
		}
		for _, it := range items {
			rec, err := fromItem(it)
			if err != nil {
				return nil, &StoreError{Op: "decode", Key: Key{ExecID: execID, Stage: it.Stage}, Cause: err}
			}
			records = append(records, rec)
		}
	}
	return records, nil
}

var _ Store = (*DynamoStore)(nil)

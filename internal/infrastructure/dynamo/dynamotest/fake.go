// Package dynamotest provides an in-memory stand-in for the DynamoDB client.
//
// It understands exactly the key shapes the dynamo package issues: items are
// keyed by PK/SK, Query reads the :pk and :sk (prefix) values, Scan reads :sk
// (equality). Expression strings themselves are not parsed.
package dynamotest

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"saleor-apps-core/internal/infrastructure/dynamo"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Fake is a goroutine-safe in-memory table
type Fake struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue

	// Err, when set, is returned by every data operation
	Err error
	// TableMissing makes DescribeTable report ResourceNotFound until CreateTable is called
	TableMissing bool

	DescribeCalls atomic.Int32
	CreateCalls   atomic.Int32
}

var _ dynamo.API = (*Fake)(nil)

// New creates an empty fake table
func New() *Fake {
	return &Fake{items: map[string]map[string]types.AttributeValue{}}
}

// Len returns the number of stored items
func (f *Fake) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

// Item returns a stored item by key
func (f *Fake) Item(pk, sk string) (map[string]types.AttributeValue, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[pk+"\x00"+sk]
	return item, ok
}

// PutRaw stores an item as-is, bypassing validation
func (f *Fake) PutRaw(item map[string]types.AttributeValue) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[stringAttr(item, dynamo.PartitionKey)+"\x00"+stringAttr(item, dynamo.SortKey)] = item
}

func (f *Fake) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	item := f.items[keyOf(params.Key)]
	return &dynamodb.GetItemOutput{Item: item}, nil
}

func (f *Fake) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	pk := stringAttr(params.Item, dynamo.PartitionKey)
	sk := stringAttr(params.Item, dynamo.SortKey)
	if pk == "" || sk == "" {
		return nil, errors.New("ValidationException: missing key attributes")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[pk+"\x00"+sk] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *Fake) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, keyOf(params.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *Fake) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	pk := stringAttr(params.ExpressionAttributeValues, ":pk")
	prefix := stringAttr(params.ExpressionAttributeValues, ":sk")

	f.mu.Lock()
	defer f.mu.Unlock()
	var items []map[string]types.AttributeValue
	for _, item := range f.items {
		if stringAttr(item, dynamo.PartitionKey) == pk && strings.HasPrefix(stringAttr(item, dynamo.SortKey), prefix) {
			items = append(items, item)
		}
	}
	sortItems(items)
	return &dynamodb.QueryOutput{Items: items, Count: int32(len(items))}, nil
}

func (f *Fake) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	sk := stringAttr(params.ExpressionAttributeValues, ":sk")

	f.mu.Lock()
	defer f.mu.Unlock()
	var items []map[string]types.AttributeValue
	for _, item := range f.items {
		if sk == "" || stringAttr(item, dynamo.SortKey) == sk {
			items = append(items, item)
		}
	}
	sortItems(items)
	return &dynamodb.ScanOutput{Items: items, Count: int32(len(items))}, nil
}

func (f *Fake) DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	f.DescribeCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.TableMissing {
		return nil, &types.ResourceNotFoundException{Message: params.TableName}
	}
	return &dynamodb.DescribeTableOutput{Table: &types.TableDescription{TableName: params.TableName}}, nil
}

func (f *Fake) CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	f.CreateCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.TableMissing = false
	return &dynamodb.CreateTableOutput{}, nil
}

func keyOf(key map[string]types.AttributeValue) string {
	return stringAttr(key, dynamo.PartitionKey) + "\x00" + stringAttr(key, dynamo.SortKey)
}

func stringAttr(item map[string]types.AttributeValue, name string) string {
	if v, ok := item[name].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func sortItems(items []map[string]types.AttributeValue) {
	sort.Slice(items, func(i, j int) bool {
		return keyOf(items[i]) < keyOf(items[j])
	})
}

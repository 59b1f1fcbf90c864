package dynamo

import (
	"context"
	"fmt"
	"iter"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"smsbridge/internal/lazy"
	"smsbridge/internal/store"
)

// API is the subset of the DynamoDB client the repository uses.
type API interface {
	dynamodb.ScanAPIClient
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// Repository stores subscriptions in a table keyed by user_number.
type Repository struct {
	Table    string
	PageSize int32
	DB       *lazy.Value[API]
}

func New(table string, pageSize int32, db *lazy.Value[API]) *Repository {
	if pageSize <= 0 {
		pageSize = store.DefaultScanPageSize
	}
	return &Repository{Table: table, PageSize: pageSize, DB: db}
}

// ActiveIdentities scans the table for active records. Pages are fetched only
// as the caller consumes the sequence, and every range over the result starts
// a fresh scan. Order is whatever the table returns.
func (r *Repository) ActiveIdentities(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		db, err := r.DB.Get(ctx)
		if err != nil {
			yield("", fmt.Errorf("dynamodb client: %w", err))
			return
		}

		expr, err := expression.NewBuilder().
			WithFilter(expression.Name("active").Equal(expression.Value(true))).
			WithProjection(expression.NamesList(expression.Name("user_number"), expression.Name("active"))).
			Build()
		if err != nil {
			yield("", fmt.Errorf("build scan expression: %w", err))
			return
		}

		input := &dynamodb.ScanInput{
			TableName:                 aws.String(r.Table),
			FilterExpression:          expr.Filter(),
			ProjectionExpression:      expr.Projection(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
		}
		if r.PageSize > 0 {
			input.Limit = aws.Int32(r.PageSize)
		}

		pages := dynamodb.NewScanPaginator(db, input)
		for pages.HasMorePages() {
			page, err := pages.NextPage(ctx)
			if err != nil {
				yield("", fmt.Errorf("scan %s: %w", r.Table, err))
				return
			}
			var recs []store.Subscription
			if err := attributevalue.UnmarshalListOfMaps(page.Items, &recs); err != nil {
				yield("", fmt.Errorf("decode %s items: %w", r.Table, err))
				return
			}
			for _, rec := range recs {
				if !yield(rec.UserNumber, nil) {
					return
				}
			}
		}
	}
}

// PutActive overwrites the record for identity. Last write wins.
func (r *Repository) PutActive(ctx context.Context, identity string, active bool) error {
	db, err := r.DB.Get(ctx)
	if err != nil {
		return fmt.Errorf("dynamodb client: %w", err)
	}
	item, err := attributevalue.MarshalMap(store.Subscription{UserNumber: identity, Active: active})
	if err != nil {
		return fmt.Errorf("encode subscription: %w", err)
	}
	if _, err := db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.Table),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("put %s: %w", r.Table, err)
	}
	return nil
}

// Ping checks that the table is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	db, err := r.DB.Get(ctx)
	if err != nil {
		return err
	}
	_, err = db.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(r.Table)})
	return err
}

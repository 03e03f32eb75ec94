package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JagadeshwaranK/MedPlusMart/internal/domain"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// passcodeItem is the stored form of a record. ExpiresAtTTL is the table's
// TTL attribute; DynamoDB deletes lazily, so Get never relies on it.
type passcodeItem struct {
	domain.PasscodeRecord
	ExpiresAtTTL int64 `dynamodbav:"expires_at_ttl"`
}

// PasscodeStore keeps one item per identifier.
// PK: identifier.
type PasscodeStore struct {
	client    API
	tableName string
	retention time.Duration
}

func NewPasscodeStore(client API, tableName string, retention time.Duration) *PasscodeStore {
	return &PasscodeStore{client: client, tableName: tableName, retention: retention}
}

func marshalPasscode(identifier string, rec *domain.PasscodeRecord, retention time.Duration) (map[string]types.AttributeValue, error) {
	item := passcodeItem{PasscodeRecord: *rec, ExpiresAtTTL: rec.ExpiresAt.Add(retention).Unix()}
	item.Identifier = identifier
	return attributevalue.MarshalMap(item)
}

func (s *PasscodeStore) Put(ctx context.Context, identifier string, rec *domain.PasscodeRecord) error {
	item, err := marshalPasscode(identifier, rec, s.retention)
	if err != nil {
		return fmt.Errorf("marshal passcode: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put passcode: %v: %w", err, domain.ErrUnavailable)
	}
	return nil
}

func (s *PasscodeStore) Get(ctx context.Context, identifier string) (*domain.PasscodeRecord, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            strKey(fieldIdentifier, identifier),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get passcode: %v: %w", err, domain.ErrUnavailable)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("passcode not found: %w", domain.ErrNotFound)
	}
	return unmarshalPasscode(out.Item)
}

// AddAttempt increments attempts with a conditional update so a missing
// item is reported instead of created.
func (s *PasscodeStore) AddAttempt(ctx context.Context, identifier string) (*domain.PasscodeRecord, error) {
	out, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.tableName),
		Key:                 strKey(fieldIdentifier, identifier),
		UpdateExpression:    aws.String("ADD #a :one"),
		ConditionExpression: aws.String("attribute_exists(#id)"),
		ExpressionAttributeNames: map[string]string{
			"#a":  fieldAttempts,
			"#id": fieldIdentifier,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return nil, fmt.Errorf("passcode not found: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("add passcode attempt: %v: %w", err, domain.ErrUnavailable)
	}
	return unmarshalPasscode(out.Attributes)
}

func unmarshalPasscode(av map[string]types.AttributeValue) (*domain.PasscodeRecord, error) {
	var item passcodeItem
	if err := attributevalue.UnmarshalMap(av, &item); err != nil {
		return nil, fmt.Errorf("decode passcode: %w", err)
	}
	rec := item.PasscodeRecord
	return &rec, nil
}

func (s *PasscodeStore) Delete(ctx context.Context, identifier string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       strKey(fieldIdentifier, identifier),
	})
	if err != nil {
		return fmt.Errorf("delete passcode: %v: %w", err, domain.ErrUnavailable)
	}
	return nil
}

package dynamo

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/JagadeshwaranK/MedPlusMart/internal/domain"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAPI struct{ mock.Mock }

func (m *mockAPI) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	args := m.Called(ctx, in)
	return &dynamodb.PutItemOutput{}, args.Error(0)
}

func (m *mockAPI) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.GetItemOutput)
	return out, args.Error(1)
}

func (m *mockAPI) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	args := m.Called(ctx, in)
	return &dynamodb.DeleteItemOutput{}, args.Error(0)
}

func (m *mockAPI) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.UpdateItemOutput)
	return out, args.Error(1)
}

func sampleRecord() *domain.PasscodeRecord {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &domain.PasscodeRecord{
		Identifier: "+15551230000",
		Secret:     "JBSWY3DPEHPK3PXP",
		Code:       "123456",
		ExpiresAt:  now.Add(5 * time.Minute),
		Attempts:   2,
		CreatedAt:  now,
	}
}

func TestMarshalPasscode_SetsKeyAndTTL(t *testing.T) {
	rec := sampleRecord()
	item, err := marshalPasscode(rec.Identifier, rec, 10*time.Minute)
	require.NoError(t, err)

	id, ok := item[fieldIdentifier].(*types.AttributeValueMemberS)
	require.True(t, ok)
	assert.Equal(t, "+15551230000", id.Value)

	ttl, ok := item[fieldTTL].(*types.AttributeValueMemberN)
	require.True(t, ok)
	want := rec.ExpiresAt.Add(10 * time.Minute).Unix()
	assert.Equal(t, strconv.FormatInt(want, 10), ttl.Value)
}

func TestPasscodeStore_PutGetRoundTrip(t *testing.T) {
	api := &mockAPI{}
	store := NewPasscodeStore(api, "passcodes", time.Minute)
	rec := sampleRecord()

	var stored map[string]types.AttributeValue
	api.On("PutItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.PutItemInput) bool {
		stored = in.Item
		return *in.TableName == "passcodes"
	})).Return(nil)
	require.NoError(t, store.Put(context.Background(), rec.Identifier, rec))

	api.On("GetItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.GetItemInput) bool {
		return *in.ConsistentRead
	})).Return(&dynamodb.GetItemOutput{Item: stored}, nil)

	got, err := store.Get(context.Background(), rec.Identifier)
	require.NoError(t, err)
	assert.Equal(t, rec.Secret, got.Secret)
	assert.Equal(t, rec.Code, got.Code)
	assert.Equal(t, rec.Attempts, got.Attempts)
	assert.True(t, rec.ExpiresAt.Equal(got.ExpiresAt))
	api.AssertExpectations(t)
}

func TestPasscodeStore_GetMissing(t *testing.T) {
	api := &mockAPI{}
	api.On("GetItem", mock.Anything, mock.Anything).Return(&dynamodb.GetItemOutput{}, nil)

	_, err := NewPasscodeStore(api, "passcodes", 0).Get(context.Background(), "+15550000000")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestPasscodeStore_FailuresAreUnavailable(t *testing.T) {
	api := &mockAPI{}
	boom := errors.New("throttled")
	api.On("GetItem", mock.Anything, mock.Anything).Return(nil, boom)
	api.On("PutItem", mock.Anything, mock.Anything).Return(boom)
	api.On("DeleteItem", mock.Anything, mock.Anything).Return(boom)
	api.On("UpdateItem", mock.Anything, mock.Anything).Return(nil, boom)
	store := NewPasscodeStore(api, "passcodes", 0)
	ctx := context.Background()

	_, err := store.Get(ctx, "x")
	assert.True(t, errors.Is(err, domain.ErrUnavailable))
	_, err = store.AddAttempt(ctx, "x")
	assert.True(t, errors.Is(err, domain.ErrUnavailable))
	assert.True(t, errors.Is(store.Put(ctx, "x", sampleRecord()), domain.ErrUnavailable))
	assert.True(t, errors.Is(store.Delete(ctx, "x"), domain.ErrUnavailable))
}

func TestPasscodeStore_AddAttemptIsConditionalIncrement(t *testing.T) {
	api := &mockAPI{}
	store := NewPasscodeStore(api, "passcodes", time.Minute)
	rec := sampleRecord()
	rec.Attempts = 3
	updated, err := marshalPasscode(rec.Identifier, rec, time.Minute)
	require.NoError(t, err)

	api.On("UpdateItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.UpdateItemInput) bool {
		one, _ := in.ExpressionAttributeValues[":one"].(*types.AttributeValueMemberN)
		return *in.UpdateExpression == "ADD #a :one" &&
			*in.ConditionExpression == "attribute_exists(#id)" &&
			in.ExpressionAttributeNames["#a"] == "attempts" &&
			one != nil && one.Value == "1" &&
			in.ReturnValues == types.ReturnValueAllNew
	})).Return(&dynamodb.UpdateItemOutput{Attributes: updated}, nil)

	got, err := store.AddAttempt(context.Background(), rec.Identifier)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Attempts)
	assert.Equal(t, rec.Code, got.Code)
	api.AssertExpectations(t)
}

func TestPasscodeStore_AddAttemptMissing(t *testing.T) {
	api := &mockAPI{}
	api.On("UpdateItem", mock.Anything, mock.Anything).
		Return(nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")})

	_, err := NewPasscodeStore(api, "passcodes", 0).AddAttempt(context.Background(), "+15550000000")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

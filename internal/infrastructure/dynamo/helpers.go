package dynamo

import "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

// Attribute names shared by the table definition and the store.
const (
	fieldIdentifier = "identifier"
	fieldTTL        = "expires_at_ttl"
	fieldAttempts   = "attempts"
)

// strKey builds a DynamoDB primary key map with a single string attribute.
func strKey(name, value string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		name: &types.AttributeValueMemberS{Value: value},
	}
}

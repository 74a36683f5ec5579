package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"mechanic-assistant/internal/domain"
)

const (
	pkPrefixUser    = "USER#"
	pkPrefixSession = "SESSION#"
	skProfile       = "PROFILE"
	skSession       = "SESSION"
)

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// Client stores users and sessions in a single DynamoDB table.
type Client struct {
	api       dynamodbAPI
	tableName string
	now       func() time.Time
}

// New creates a new repository Client.
func New(api dynamodbAPI, tableName string) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Client{api: api, tableName: tableName, now: time.Now}, nil
}

func userPK(email string) string {
	return pkPrefixUser + normalizeEmail(email)
}

func sessionPK(token string) string {
	return pkPrefixSession + token
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func userKey(email string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: userPK(email)},
		"SK": &types.AttributeValueMemberS{Value: skProfile},
	}
}

func sessionKey(token string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: sessionPK(token)},
		"SK": &types.AttributeValueMemberS{Value: skSession},
	}
}

// CreateUser inserts a new user. The conditional write enforces email
// uniqueness and reports a duplicate as domain.ErrEmailTaken.
func (c *Client) CreateUser(ctx context.Context, user domain.User) error {
	if normalizeEmail(user.Email) == "" {
		return errors.New("repository: CreateUser: email is required")
	}
	if user.ID == "" {
		return errors.New("repository: CreateUser: id is required")
	}
	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(c.tableName),
		Item:                userItem(user),
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("repository: CreateUser: %w", err)
	}
	return nil
}

// FindUserByEmail returns the user with the given email, or nil when absent.
func (c *Client) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(c.tableName),
		Key:            userKey(email),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("repository: FindUserByEmail get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return nil, nil
	}
	user, err := itemToUser(out.Item)
	if err != nil {
		return nil, fmt.Errorf("repository: FindUserByEmail unmarshal: %w", err)
	}
	return &user, nil
}

// DeleteUsersByEmail removes every user with the given email and reports how
// many were deleted. With a unique email this is zero or one.
func (c *Client) DeleteUsersByEmail(ctx context.Context, email string) (int, error) {
	out, err := c.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(c.tableName),
		Key:          userKey(email),
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return 0, fmt.Errorf("repository: DeleteUsersByEmail: %w", err)
	}
	if out == nil || len(out.Attributes) == 0 {
		return 0, nil
	}
	return 1, nil
}

// CreateSession persists a session. DynamoDB TTL removes it after expiry.
func (c *Client) CreateSession(ctx context.Context, session domain.Session) error {
	if session.Token == "" {
		return errors.New("repository: CreateSession: token is required")
	}
	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(c.tableName),
		Item:                sessionItem(session),
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		return fmt.Errorf("repository: CreateSession: %w", err)
	}
	return nil
}

// GetSession returns the live session for token, or nil when it is absent or
// expired. TTL deletion is lazy, so expiry is checked here as well.
func (c *Client) GetSession(ctx context.Context, token string) (*domain.Session, error) {
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.tableName),
		Key:       sessionKey(token),
	})
	if err != nil {
		return nil, fmt.Errorf("repository: GetSession get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return nil, nil
	}
	email, err := strAttr(out.Item, "email")
	if err != nil {
		return nil, fmt.Errorf("repository: GetSession unmarshal: %w", err)
	}
	ttl, err := intAttr(out.Item, "ttl")
	if err != nil {
		return nil, fmt.Errorf("repository: GetSession decode ttl: %w", err)
	}
	session := domain.Session{Token: token, Email: email, ExpiresAt: time.Unix(ttl, 0).UTC()}
	if session.Expired(c.now()) {
		return nil, nil
	}
	return &session, nil
}

// DeleteSession removes the session for token. Missing sessions are not an error.
func (c *Client) DeleteSession(ctx context.Context, token string) error {
	_, err := c.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(c.tableName),
		Key:       sessionKey(token),
	})
	if err != nil {
		return fmt.Errorf("repository: DeleteSession: %w", err)
	}
	return nil
}

func userItem(user domain.User) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":           &types.AttributeValueMemberS{Value: userPK(user.Email)},
		"SK":           &types.AttributeValueMemberS{Value: skProfile},
		"id":           &types.AttributeValueMemberS{Value: user.ID},
		"email":        &types.AttributeValueMemberS{Value: normalizeEmail(user.Email)},
		"passwordHash": &types.AttributeValueMemberS{Value: user.PasswordHash},
		"createdAt":    &types.AttributeValueMemberS{Value: user.CreatedAt.UTC().Format(time.RFC3339Nano)},
		"updatedAt":    &types.AttributeValueMemberS{Value: user.UpdatedAt.UTC().Format(time.RFC3339Nano)},
	}
}

func sessionItem(session domain.Session) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":    &types.AttributeValueMemberS{Value: sessionPK(session.Token)},
		"SK":    &types.AttributeValueMemberS{Value: skSession},
		"email": &types.AttributeValueMemberS{Value: normalizeEmail(session.Email)},
		"ttl":   &types.AttributeValueMemberN{Value: strconv.FormatInt(session.ExpiresAt.Unix(), 10)},
	}
}

// itemToUser converts a DynamoDB attribute map to a User.
func itemToUser(item map[string]types.AttributeValue) (domain.User, error) {
	id, err := strAttr(item, "id")
	if err != nil {
		return domain.User{}, err
	}
	email, err := strAttr(item, "email")
	if err != nil {
		return domain.User{}, err
	}
	hash, err := strAttr(item, "passwordHash")
	if err != nil {
		return domain.User{}, err
	}
	createdAt, err := timeAttr(item, "createdAt")
	if err != nil {
		return domain.User{}, err
	}
	updatedAt, err := timeAttr(item, "updatedAt")
	if err != nil {
		return domain.User{}, err
	}
	return domain.User{
		ID:           id,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	}, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}

func intAttr(item map[string]types.AttributeValue, key string) (int64, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("repository: missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("repository: attribute %q is not a number", key)
	}
	parsed, err := strconv.ParseInt(n.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return parsed, nil
}

func timeAttr(item map[string]types.AttributeValue, key string) (time.Time, error) {
	s, err := strAttr(item, key)
	if err != nil {
		return time.Time{}, err
	}
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return ts, nil
}

package aws

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// SecretValueAPI is the Secrets Manager call the loader needs.
type SecretValueAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// DBSecretLoader reads the Postgres credential secret. The secret is a flat
// JSON object keyed like the POSTGRES_* variables; numbers are accepted for
// values such as the port.
type DBSecretLoader struct {
	api SecretValueAPI
}

func NewDBSecretLoader(cfg sdkaws.Config) *DBSecretLoader {
	return &DBSecretLoader{api: secretsmanager.NewFromConfig(cfg)}
}

// Load fetches secretID and flattens it to strings.
func (l *DBSecretLoader) Load(ctx context.Context, secretID string) (map[string]string, error) {
	out, err := l.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: sdkaws.String(secretID)})
	if err != nil {
		return nil, fmt.Errorf("read db secret %s: %w", secretID, err)
	}
	if out.SecretString == nil || *out.SecretString == "" {
		return nil, fmt.Errorf("db secret %s is empty", secretID)
	}

	dec := json.NewDecoder(bytes.NewBufferString(*out.SecretString))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("db secret %s is not a JSON object: %w", secretID, err)
	}

	creds := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			creds[k] = val
		case json.Number:
			creds[k] = val.String()
		case nil:
		default:
			return nil, fmt.Errorf("db secret %s: %s must be a string or number", secretID, k)
		}
	}
	return creds, nil
}

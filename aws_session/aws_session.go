package aws_session

import (
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/danthegoodman1/glueexport/utils"
)

type (
	// Credentials selects how a session authenticates. Exactly one of NamedProfile,
	// ExplicitKeys or DefaultChain.
	Credentials interface {
		isCredentials()
	}

	NamedProfile struct {
		Name string
	}

	ExplicitKeys struct {
		AccessKeyID     string
		SecretAccessKey string
		SessionToken    string
	}

	// DefaultChain uses the SDK default provider chain (env, shared config, instance role)
	DefaultChain struct{}

	ConnectionParams struct {
		Region      string
		Credentials Credentials
		// Endpoint overrides the service endpoint, for S3 compatible stores
		Endpoint string
	}
)

func (NamedProfile) isCredentials() {}
func (ExplicitKeys) isCredentials() {}
func (DefaultChain) isCredentials() {}

// ResolveCredentials picks the credentials variant once: profile first, then explicit keys, then the default chain
func ResolveCredentials(profile, key, secret string) Credentials {
	switch {
	case profile != "":
		return NamedProfile{Name: profile}
	case key != "" && secret != "":
		return ExplicitKeys{AccessKeyID: key, SecretAccessKey: secret}
	default:
		return DefaultChain{}
	}
}

// ParamsFromEnv builds connection params from the process environment
func ParamsFromEnv() ConnectionParams {
	return ConnectionParams{
		Region:      utils.AWS_DEFAULT_REGION,
		Credentials: ResolveCredentials(utils.AWS_PROFILE, utils.AWS_ACCESS_KEY_ID, utils.AWS_SECRET_ACCESS_KEY),
		Endpoint:    utils.S3_ENDPOINT,
	}
}

func NewSession(params ConnectionParams) (*session.Session, error) {
	opts := session.Options{
		Config:            *config(params),
		SharedConfigState: session.SharedConfigEnable,
	}

	switch c := params.Credentials.(type) {
	case NamedProfile:
		opts.Profile = c.Name
	case ExplicitKeys:
		opts.Config.Credentials = credentials.NewStaticCredentials(c.AccessKeyID, c.SecretAccessKey, c.SessionToken)
	case DefaultChain, nil:
	default:
		return nil, fmt.Errorf("unknown credentials variant %T", c)
	}

	sess, err := session.NewSessionWithOptions(opts)
	if err != nil {
		return nil, fmt.Errorf("error making new session: %w", err)
	}
	return sess, nil
}

func config(params ConnectionParams) *aws.Config {
	cfg := aws.NewConfig()
	if params.Region != "" {
		cfg = cfg.WithRegion(params.Region)
	}
	return cfg
}

// S3Config carries the endpoint override, which applies to S3 only and not to the catalog or query services
func S3Config(params ConnectionParams) *aws.Config {
	cfg := aws.NewConfig()
	if params.Endpoint != "" {
		cfg = cfg.WithEndpoint(params.Endpoint).WithS3ForcePathStyle(true)
	}
	return cfg
}

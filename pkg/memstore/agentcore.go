package memstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentcore"
	datatypes "github.com/aws/aws-sdk-go-v2/service/bedrockagentcore/types"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentcorecontrol"
	controltypes "github.com/aws/aws-sdk-go-v2/service/bedrockagentcorecontrol/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"

	"github.com/opsforge/opsagent/pkg/logger"
)

const (
	createPollInterval = 10 * time.Second
	createWaitDeadline = 15 * time.Minute
)

// AgentCoreStore implements Store against Bedrock AgentCore Memory, using the
// control plane for resource lifecycle and the data plane for content.
type AgentCoreStore struct {
	control *bedrockagentcorecontrol.Client
	data    *bedrockagentcore.Client
}

// NewAgentCore builds an AgentCoreStore from a resolved AWS config.
func NewAgentCore(cfg aws.Config) *AgentCoreStore {
	return &AgentCoreStore{
		control: bedrockagentcorecontrol.NewFromConfig(cfg),
		data:    bedrockagentcore.NewFromConfig(cfg),
	}
}

func (s *AgentCoreStore) GetResource(ctx context.Context, id string) (Resource, error) {
	out, err := s.control.GetMemory(ctx, &bedrockagentcorecontrol.GetMemoryInput{
		MemoryId: aws.String(id),
	})
	if err != nil {
		var notFound *controltypes.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return Resource{}, ErrResourceNotFound
		}
		return Resource{}, fmt.Errorf("get memory %s: %w", id, err)
	}
	if out.Memory == nil {
		return Resource{}, ErrResourceNotFound
	}
	return resourceFromMemory(out.Memory), nil
}

func (s *AgentCoreStore) ListResources(ctx context.Context) ([]Resource, error) {
	var resources []Resource
	paginator := bedrockagentcorecontrol.NewListMemoriesPaginator(s.control, &bedrockagentcorecontrol.ListMemoriesInput{
		MaxResults: aws.Int32(100),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list memories: %w", err)
		}
		for _, summary := range page.Memories {
			// Summaries carry no name; discovery falls back to id matching.
			resources = append(resources, Resource{
				ID:     aws.ToString(summary.Id),
				Status: Status(summary.Status),
			})
		}
	}
	return resources, nil
}

func (s *AgentCoreStore) CreateResourceAndWait(ctx context.Context, in CreateInput) (Resource, error) {
	out, err := s.control.CreateMemory(ctx, &bedrockagentcorecontrol.CreateMemoryInput{
		Name:                aws.String(in.Name),
		Description:         aws.String(in.Description),
		ClientToken:         aws.String(uuid.NewString()),
		EventExpiryDuration: aws.Int32(int32(in.EventExpiryDays)),
		MemoryStrategies:    strategyInputs(in.Strategies),
	})
	if err != nil {
		return Resource{}, fmt.Errorf("create memory %s: %w", in.Name, err)
	}
	if out.Memory == nil || aws.ToString(out.Memory.Id) == "" {
		return Resource{}, fmt.Errorf("create memory %s: empty response", in.Name)
	}

	id := aws.ToString(out.Memory.Id)
	logger.InfoCF("memstore", "Memory resource creation started, waiting for ACTIVE",
		map[string]any{"memory_id": id})
	return s.waitForActive(ctx, id)
}

func (s *AgentCoreStore) waitForActive(ctx context.Context, id string) (Resource, error) {
	deadline := time.Now().Add(createWaitDeadline)
	ticker := time.NewTicker(createPollInterval)
	defer ticker.Stop()

	for {
		resource, err := s.GetResource(ctx, id)
		if err != nil {
			return Resource{}, fmt.Errorf("wait for memory %s: %w", id, err)
		}
		switch resource.Status {
		case StatusActive:
			return resource, nil
		case StatusFailed:
			return Resource{}, fmt.Errorf("memory %s entered FAILED state", id)
		}
		if time.Now().After(deadline) {
			return Resource{}, fmt.Errorf("memory %s not ACTIVE after %s", id, createWaitDeadline)
		}
		select {
		case <-ctx.Done():
			return Resource{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *AgentCoreStore) GetStrategies(ctx context.Context, id string) ([]Strategy, error) {
	resource, err := s.GetResource(ctx, id)
	if err != nil {
		return nil, err
	}
	return resource.Strategies, nil
}

func (s *AgentCoreStore) Retrieve(ctx context.Context, in RetrieveInput) ([]Record, error) {
	out, err := s.data.RetrieveMemoryRecords(ctx, &bedrockagentcore.RetrieveMemoryRecordsInput{
		MemoryId:  aws.String(in.MemoryID),
		Namespace: aws.String(in.Namespace),
		SearchCriteria: &datatypes.SearchCriteria{
			SearchQuery: aws.String(in.Query),
			TopK:        aws.Int32(int32(in.TopK)),
		},
	})
	if err != nil {
		if isNotFoundAPIError(err) {
			return nil, ErrResourceNotFound
		}
		return nil, fmt.Errorf("retrieve records in %s: %w", in.Namespace, err)
	}

	records := make([]Record, 0, len(out.MemoryRecordSummaries))
	for _, summary := range out.MemoryRecordSummaries {
		if text, ok := summary.Content.(*datatypes.MemoryContentMemberText); ok {
			records = append(records, Record{Text: text.Value})
		}
	}
	return records, nil
}

func (s *AgentCoreStore) AppendEvent(ctx context.Context, in EventInput) error {
	payload := make([]datatypes.PayloadType, 0, len(in.Messages))
	for _, msg := range in.Messages {
		payload = append(payload, &datatypes.PayloadTypeMemberConversational{
			Value: datatypes.Conversational{
				Content: &datatypes.ContentMemberText{Value: msg.Text},
				Role:    datatypes.Role(msg.Role),
			},
		})
	}

	_, err := s.data.CreateEvent(ctx, &bedrockagentcore.CreateEventInput{
		MemoryId:       aws.String(in.MemoryID),
		ActorId:        aws.String(in.ActorID),
		SessionId:      aws.String(in.SessionID),
		EventTimestamp: aws.Time(time.Now()),
		Payload:        payload,
	})
	if err != nil {
		return fmt.Errorf("create event for %s: %w", in.MemoryID, err)
	}
	return nil
}

// isNotFoundAPIError matches not-found failures from the data plane, whose
// exception types differ from the control plane's.
func isNotFoundAPIError(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "ResourceNotFoundException"
}

func resourceFromMemory(m *controltypes.Memory) Resource {
	strategies := make([]Strategy, 0, len(m.Strategies))
	for _, s := range m.Strategies {
		strategies = append(strategies, Strategy{
			Type:        StrategyType(s.Type),
			Name:        aws.ToString(s.Name),
			Description: aws.ToString(s.Description),
			Namespaces:  s.Namespaces,
		})
	}
	return Resource{
		ID:         aws.ToString(m.Id),
		Name:       aws.ToString(m.Name),
		Status:     Status(m.Status),
		Strategies: strategies,
	}
}

func strategyInputs(strategies []Strategy) []controltypes.MemoryStrategyInput {
	inputs := make([]controltypes.MemoryStrategyInput, 0, len(strategies))
	for _, s := range strategies {
		switch s.Type {
		case StrategyUserPreference:
			inputs = append(inputs, &controltypes.MemoryStrategyInputMemberUserPreferenceMemoryStrategy{
				Value: controltypes.UserPreferenceMemoryStrategyInput{
					Name:        aws.String(s.Name),
					Description: aws.String(s.Description),
					Namespaces:  s.Namespaces,
				},
			})
		case StrategySemantic:
			inputs = append(inputs, &controltypes.MemoryStrategyInputMemberSemanticMemoryStrategy{
				Value: controltypes.SemanticMemoryStrategyInput{
					Name:        aws.String(s.Name),
					Description: aws.String(s.Description),
					Namespaces:  s.Namespaces,
				},
			})
		}
	}
	return inputs
}

package grpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vogiaan1904/ticketbottle-gateway/internal/models"
	"github.com/vogiaan1904/ticketbottle-gateway/internal/service"
	gatewaygrpc "github.com/vogiaan1904/ticketbottle-gateway/pkg/grpc"
	"github.com/vogiaan1904/ticketbottle-gateway/pkg/logger"
	resp "github.com/vogiaan1904/ticketbottle-gateway/pkg/response"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

type grpcService struct {
	events service.EventService
	music  service.MusicService
	l      logger.Logger
}

func NewGrpcService(events service.EventService, music service.MusicService, l logger.Logger) gatewaygrpc.GatewayServer {
	return &grpcService{
		events: events,
		music:  music,
		l:      l,
	}
}

// Publish expects {topic, type, data}; data is forwarded to subscribers as is.
func (s *grpcService) Publish(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	fields := req.GetFields()

	in := service.PublishInput{
		Topic: fields["topic"].GetStringValue(),
		Type:  fields["type"].GetStringValue(),
	}
	if v, ok := fields["data"]; ok {
		data, err := json.Marshal(v.AsInterface())
		if err != nil {
			return nil, resp.ParseGRPCError(errInvalidRequest)
		}
		in.Data = data
	}

	if err := s.events.Publish(ctx, in); err != nil {
		s.l.Errorf(ctx, "grpc.grpcService.Publish: %v", err)
		return nil, resp.ParseGRPCError(s.mapGRPCError(err))
	}

	return &emptypb.Empty{}, nil
}

// UpdateMusicConfig expects {serverId, enabled, allowedPlatforms, maxQueueSize}.
// A missing allowedPlatforms allows every platform.
func (s *grpcService) UpdateMusicConfig(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	cfg, err := toMusicConfig(req)
	if err != nil {
		s.l.Warnf(ctx, "grpc.grpcService.UpdateMusicConfig: %v", err)
		return nil, resp.ParseGRPCError(errInvalidRequest)
	}

	if err := s.music.UpdateConfig(ctx, cfg); err != nil {
		s.l.Errorf(ctx, "grpc.grpcService.UpdateMusicConfig: %v", err)
		return nil, resp.ParseGRPCError(s.mapGRPCError(err))
	}

	return &emptypb.Empty{}, nil
}

func toMusicConfig(req *structpb.Struct) (models.MusicConfig, error) {
	fields := req.GetFields()

	cfg := models.MusicConfig{
		ServerID:         fields["serverId"].GetStringValue(),
		Enabled:          fields["enabled"].GetBoolValue(),
		MaxQueueSize:     int(fields["maxQueueSize"].GetNumberValue()),
		AllowedPlatforms: models.AllPlatforms,
	}

	if v, ok := fields["allowedPlatforms"]; ok {
		list := v.GetListValue()
		if list == nil {
			return cfg, fmt.Errorf("allowedPlatforms must be a list")
		}
		cfg.AllowedPlatforms = make([]models.Platform, 0, len(list.GetValues()))
		for _, p := range list.GetValues() {
			cfg.AllowedPlatforms = append(cfg.AllowedPlatforms, models.Platform(p.GetStringValue()))
		}
	}

	return cfg, nil
}

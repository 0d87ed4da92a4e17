package grpc

import (
	"context"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"

	pb "github.com/Belphemur/TubeMP3/api/v1"
	"github.com/Belphemur/TubeMP3/internal/apperrors"
	"github.com/Belphemur/TubeMP3/internal/config"
	"github.com/Belphemur/TubeMP3/internal/models"
	"github.com/Belphemur/TubeMP3/internal/reporting"
	"github.com/Belphemur/TubeMP3/internal/services"
)

// BinaryManager inspects and resets the bundled tool cache
type BinaryManager interface {
	Check(ctx context.Context) models.DependencyReport
	ClearCache() (int, error)
}

// HistoryStore lists and clears completed downloads
type HistoryStore interface {
	List() ([]models.HistoryEntry, error)
	Clear() error
}

// PreferenceStore reads and merges saved preferences
type PreferenceStore interface {
	Get() (models.Preferences, error)
	Save(update models.Preferences) (models.Preferences, error)
}

// Dependencies are the engine components the service delegates to
type Dependencies struct {
	Downloader  services.Downloader
	Converter   services.AudioConverter
	Binaries    BinaryManager
	History     HistoryStore
	Preferences PreferenceStore
	Reporter    *reporting.Reporter
}

// server implements the DownloaderServiceServer interface
type server struct {
	pb.UnimplementedDownloaderServiceServer
	deps   Dependencies
	logger zerolog.Logger
}

// NewServer creates a new gRPC server instance
func NewServer(deps Dependencies) pb.DownloaderServiceServer {
	return &server{
		deps:   deps,
		logger: config.GetLogger(),
	}
}

// fail reports err and converts it to a status
func (s *server) fail(err error, operation string) error {
	s.deps.Reporter.Capture(err, map[string]string{"operation": operation})
	return toStatus(err)
}

// Download implements DownloaderServiceServer.Download
func (s *server) Download(req *pb.DownloadRequest, stream grpc.ServerStreamingServer[pb.DownloadEvent]) error {
	ctx := stream.Context()
	s.logger.Debug().Str("url", req.Url).Msg("Download called")

	count := 0
	for result := range s.deps.Downloader.StreamDownload(ctx, convertDownloadRequestFromProto(req)) {
		if result.Err != nil {
			s.logger.Error().Err(result.Err).Str("url", req.Url).Msg("Download failed")
			return s.fail(result.Err, "download")
		}
		if err := stream.Send(convertEventToProto(result.Value)); err != nil {
			s.logger.Debug().Err(err).Msg("Client went away while streaming download events")
			return err
		}
		count++
	}
	// A cancelled request may close the channel without delivering its error
	if err := ctx.Err(); err != nil {
		return toStatus(err)
	}

	s.logger.Debug().Str("url", req.Url).Int("events", count).Msg("Download completed")
	return nil
}

// Convert implements DownloaderServiceServer.Convert
func (s *server) Convert(req *pb.ConvertRequest, stream grpc.ServerStreamingServer[pb.ConvertEvent]) error {
	ctx, cancel := context.WithCancel(stream.Context())
	defer cancel()
	s.logger.Debug().Str("input", req.InputPath).Msg("Convert called")

	// Convert calls the sink synchronously, so Send is never concurrent.
	var sendErr error
	sink := func(rec models.ProgressRecord) {
		if sendErr != nil {
			return
		}
		if sendErr = stream.Send(&pb.ConvertEvent{Progress: convertProgressToProto(rec)}); sendErr != nil {
			cancel()
		}
	}

	item, err := s.deps.Converter.Convert(ctx, convertConvertRequestFromProto(req), sink)
	if sendErr != nil {
		return sendErr
	}
	if err != nil {
		s.logger.Error().Err(err).Str("input", req.InputPath).Msg("Convert failed")
		return s.fail(err, "convert")
	}
	return stream.Send(&pb.ConvertEvent{Result: convertItemToProto(*item)})
}

// CheckDependencies implements DownloaderServiceServer.CheckDependencies
func (s *server) CheckDependencies(ctx context.Context, _ *pb.CheckDependenciesRequest) (*pb.CheckDependenciesResponse, error) {
	report := s.deps.Binaries.Check(ctx)
	if err := ctx.Err(); err != nil {
		return nil, toStatus(err)
	}
	s.logger.Debug().Bool("ready", report.Ready()).Msg("CheckDependencies completed")
	return &pb.CheckDependenciesResponse{
		Fetcher:   convertDependencyToProto(report.Fetcher),
		Converter: convertDependencyToProto(report.Converter),
		Ready:     report.Ready(),
	}, nil
}

// ClearCachedBinaries implements DownloaderServiceServer.ClearCachedBinaries
func (s *server) ClearCachedBinaries(_ context.Context, _ *pb.ClearCachedBinariesRequest) (*pb.ClearCachedBinariesResponse, error) {
	removed, err := s.deps.Binaries.ClearCache()
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to clear binary cache")
		return nil, s.fail(err, "clear_cache")
	}
	return &pb.ClearCachedBinariesResponse{Removed: int32(removed)}, nil
}

// GetHistory implements DownloaderServiceServer.GetHistory
func (s *server) GetHistory(_ context.Context, _ *pb.GetHistoryRequest) (*pb.GetHistoryResponse, error) {
	entries, err := s.deps.History.List()
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to read history")
		return nil, s.fail(err, "get_history")
	}
	out := make([]*pb.HistoryEntry, len(entries))
	for i, e := range entries {
		out[i] = convertHistoryEntryToProto(e)
	}
	return &pb.GetHistoryResponse{Entries: out}, nil
}

// ClearHistory implements DownloaderServiceServer.ClearHistory
func (s *server) ClearHistory(_ context.Context, _ *pb.ClearHistoryRequest) (*pb.ClearHistoryResponse, error) {
	if err := s.deps.History.Clear(); err != nil {
		s.logger.Error().Err(err).Msg("Failed to clear history")
		return nil, s.fail(err, "clear_history")
	}
	return &pb.ClearHistoryResponse{}, nil
}

// GetPreferences implements DownloaderServiceServer.GetPreferences
func (s *server) GetPreferences(_ context.Context, _ *pb.GetPreferencesRequest) (*pb.GetPreferencesResponse, error) {
	prefs, err := s.deps.Preferences.Get()
	if err != nil {
		return nil, s.fail(err, "get_preferences")
	}
	return &pb.GetPreferencesResponse{Preferences: convertPreferencesToProto(prefs)}, nil
}

// SavePreferences implements DownloaderServiceServer.SavePreferences
func (s *server) SavePreferences(_ context.Context, req *pb.SavePreferencesRequest) (*pb.SavePreferencesResponse, error) {
	update := convertPreferencesFromProto(req.Preferences)
	if update.BitrateKbps != nil && (*update.BitrateKbps < services.MinBitrate || *update.BitrateKbps > services.MaxBitrate) {
		return nil, toStatus(apperrors.NewInvalidBitrateError(*update.BitrateKbps, services.MinBitrate, services.MaxBitrate))
	}
	saved, err := s.deps.Preferences.Save(update)
	if err != nil {
		return nil, s.fail(err, "save_preferences")
	}
	return &pb.SavePreferencesResponse{Preferences: convertPreferencesToProto(saved)}, nil
}

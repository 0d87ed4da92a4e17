package grpc

import (
	pb "github.com/Belphemur/TubeMP3/api/v1"
	"github.com/Belphemur/TubeMP3/internal/models"
)

// convertDownloadRequestFromProto converts a proto DownloadRequest to models.DownloadRequest
func convertDownloadRequestFromProto(req *pb.DownloadRequest) models.DownloadRequest {
	if req == nil {
		return models.DownloadRequest{}
	}
	return models.DownloadRequest{
		URL:         req.Url,
		OutputDir:   req.OutputDir,
		BitrateKbps: int(req.BitrateKbps),
	}
}

func convertConvertRequestFromProto(req *pb.ConvertRequest) models.ConvertRequest {
	if req == nil {
		return models.ConvertRequest{}
	}
	return models.ConvertRequest{
		InputPath:   req.InputPath,
		OutputPath:  req.OutputPath,
		BitrateKbps: int(req.BitrateKbps),
	}
}

// convertProgressToProto converts a models.ProgressRecord to a proto Progress message
func convertProgressToProto(rec models.ProgressRecord) *pb.Progress {
	return &pb.Progress{
		RequestId:       rec.RequestID,
		OverallFraction: rec.OverallFraction,
		CurrentItem:     int32(rec.CurrentItem),
		TotalItems:      int32(rec.TotalItems),
		ItemFraction:    rec.ItemFraction,
		Phase:           rec.Phase.String(),
		CurrentTitle:    rec.CurrentTitle,
	}
}

func convertItemToProto(item models.DownloadItemResult) *pb.Item {
	return &pb.Item{
		OutputPath:      item.OutputPath,
		Title:           item.Title,
		DurationSeconds: item.DurationSeconds,
		FileSizeBytes:   item.FileSizeBytes,
		Skipped:         item.Skipped,
	}
}

// convertResponseToProto converts the tagged models.DownloadResponse to a proto DownloadResult
func convertResponseToProto(resp *models.DownloadResponse) *pb.DownloadResult {
	if resp == nil {
		return nil
	}
	result := &pb.DownloadResult{Kind: resp.Kind.String()}
	switch resp.Kind {
	case models.SourcePlaylist:
		if resp.Playlist == nil {
			return result
		}
		items := make([]*pb.Item, len(resp.Playlist.Items))
		for i, item := range resp.Playlist.Items {
			items[i] = convertItemToProto(item)
		}
		failed := make([]*pb.ItemFailure, len(resp.Playlist.Failed))
		for i, f := range resp.Playlist.Failed {
			failed[i] = &pb.ItemFailure{Index: int32(f.Index), Title: f.Title, Url: f.URL, Error: f.Error}
		}
		result.Playlist = &pb.Playlist{
			OutputDir:  resp.Playlist.OutputDir,
			TotalItems: int32(resp.Playlist.TotalItems),
			Items:      items,
			Failed:     failed,
		}
	default:
		if resp.Single != nil {
			result.Single = convertItemToProto(*resp.Single)
		}
	}
	return result
}

// convertEventToProto converts one streamed models.DownloadEvent
func convertEventToProto(event models.DownloadEvent) *pb.DownloadEvent {
	out := &pb.DownloadEvent{RequestId: event.RequestID}
	if event.Progress != nil {
		out.Progress = convertProgressToProto(*event.Progress)
	}
	if event.Result != nil {
		out.Result = convertResponseToProto(event.Result)
	}
	return out
}

func convertDependencyToProto(s models.DependencyStatus) *pb.Dependency {
	return &pb.Dependency{
		Tool:    s.Tool,
		Path:    s.Path,
		Version: s.Version,
		Error:   s.Error,
		Ready:   s.OK(),
	}
}

func convertHistoryEntryToProto(e models.HistoryEntry) *pb.HistoryEntry {
	return &pb.HistoryEntry{
		Url:             e.URL,
		Title:           e.Title,
		OutputPath:      e.OutputPath,
		BitrateKbps:     int32(e.BitrateKbps),
		Timestamp:       e.Timestamp,
		DurationSeconds: e.DurationSeconds,
	}
}

func convertPreferencesToProto(p models.Preferences) *pb.Preferences {
	out := &pb.Preferences{OutputDir: p.OutputDir, LastUrl: p.LastURL}
	if p.BitrateKbps != nil {
		bitrate := int32(*p.BitrateKbps)
		out.BitrateKbps = &bitrate
	}
	return out
}

// convertPreferencesFromProto keeps nil fields nil so they are not overwritten on save
func convertPreferencesFromProto(p *pb.Preferences) models.Preferences {
	if p == nil {
		return models.Preferences{}
	}
	out := models.Preferences{OutputDir: p.OutputDir, LastURL: p.LastUrl}
	if p.BitrateKbps != nil {
		bitrate := int(*p.BitrateKbps)
		out.BitrateKbps = &bitrate
	}
	return out
}

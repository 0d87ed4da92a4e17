package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	pb "github.com/Belphemur/TubeMP3/api/v1"
	"github.com/Belphemur/TubeMP3/internal/config"
	grpcserver "github.com/Belphemur/TubeMP3/internal/grpc"
	"github.com/Belphemur/TubeMP3/internal/models"
	"github.com/Belphemur/TubeMP3/internal/store"
)

var (
	outputDir  string
	bitrate    int
	serverAddr string
	jsonOutput bool
)

var downloadCmd = &cobra.Command{
	Use:   "download <url>",
	Short: "Download a video or playlist as MP3",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if serverAddr != "" {
			return runRemoteDownload(ctx, cmd, args[0])
		}
		return runDownload(ctx, cmd, args[0])
	},
}

var convertCmd = &cobra.Command{
	Use:   "convert <input-file>",
	Short: "Convert a local media file to MP3",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runConvert(ctx, cmd, args[0])
	},
}

func init() {
	downloadCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory (default: saved preference, then paths.output_dir)")
	downloadCmd.Flags().IntVarP(&bitrate, "bitrate", "b", 0, "MP3 bitrate in kbps, 32-320 (default: saved preference, then download.bitrate)")
	downloadCmd.Flags().StringVar(&serverAddr, "server", "", "run the download on a tubemp3 server at host:port instead of locally")
	downloadCmd.Flags().BoolVar(&jsonOutput, "json", false, "print the result as JSON")

	convertCmd.Flags().StringP("output", "o", "", "output file (default: input with .mp3 extension)")
	convertCmd.Flags().IntP("bitrate", "b", 0, "MP3 bitrate in kbps, 32-320")

	rootCmd.AddCommand(downloadCmd, convertCmd)
}

// applyPreferences fills flags the user left empty from saved preferences
func applyPreferences(prefs *store.Preferences, req *models.DownloadRequest) {
	saved, err := prefs.Get()
	if err != nil {
		logger := config.GetLogger()
		logger.Warn().Err(err).Msg("Could not read preferences")
		return
	}
	if req.OutputDir == "" && saved.OutputDir != nil {
		req.OutputDir = *saved.OutputDir
	}
	if req.BitrateKbps == 0 && saved.BitrateKbps != nil {
		req.BitrateKbps = *saved.BitrateKbps
	}
}

func runDownload(ctx context.Context, cmd *cobra.Command, url string) error {
	engine, err := newApp(config.GetConfig())
	if err != nil {
		return err
	}
	defer engine.close()

	req := models.DownloadRequest{URL: url, OutputDir: outputDir, BitrateKbps: bitrate}
	applyPreferences(engine.preferences, &req)

	printer := newProgressPrinter(cmd.ErrOrStderr())
	resp, err := engine.downloader.Download(ctx, req, printer.Print)
	if err != nil {
		engine.reporter.Capture(err, map[string]string{"operation": "cli_download"})
		return err
	}

	update := models.Preferences{LastURL: &url}
	if outputDir != "" {
		update.OutputDir = &outputDir
	}
	if bitrate != 0 {
		update.BitrateKbps = &bitrate
	}
	if _, err := engine.preferences.Save(update); err != nil {
		logger := config.GetLogger()
		logger.Warn().Err(err).Msg("Could not save preferences")
	}

	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), resp)
	}
	printResponse(cmd.OutOrStdout(), resp)
	return nil
}

func runRemoteDownload(ctx context.Context, cmd *cobra.Command, url string) error {
	client, err := grpcserver.Dial(serverAddr)
	if err != nil {
		return err
	}
	defer client.Close()

	stream, err := client.Download(ctx, &pb.DownloadRequest{Url: url, OutputDir: outputDir, BitrateKbps: int32(bitrate)})
	if err != nil {
		return err
	}

	printer := newProgressPrinter(cmd.ErrOrStderr())
	for {
		event, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return errors.New("server closed the stream without a result")
		}
		if err != nil {
			return err
		}
		if p := event.Progress; p != nil {
			phase, _ := models.ParsePhase(p.Phase)
			printer.Print(models.ProgressRecord{
				RequestID:       p.RequestId,
				OverallFraction: p.OverallFraction,
				CurrentItem:     int(p.CurrentItem),
				TotalItems:      int(p.TotalItems),
				ItemFraction:    p.ItemFraction,
				Phase:           phase,
				CurrentTitle:    p.CurrentTitle,
			})
		}
		if event.Result != nil {
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), event.Result)
			}
			printRemoteResult(cmd.OutOrStdout(), event.Result)
			return nil
		}
	}
}

func printRemoteResult(w io.Writer, res *pb.DownloadResult) {
	if res.Single != nil {
		fmt.Fprintln(w, res.Single.OutputPath)
	}
	if res.Playlist != nil {
		for _, item := range res.Playlist.Items {
			fmt.Fprintln(w, item.OutputPath)
		}
		for _, f := range res.Playlist.Failed {
			fmt.Fprintf(w, "failed   #%d %s: %s\n", f.Index, f.Title, f.Error)
		}
	}
}

func runConvert(ctx context.Context, cmd *cobra.Command, input string) error {
	output, _ := cmd.Flags().GetString("output")
	kbps, _ := cmd.Flags().GetInt("bitrate")

	engine, err := newApp(config.GetConfig())
	if err != nil {
		return err
	}
	defer engine.close()

	printer := newProgressPrinter(cmd.ErrOrStderr())
	item, err := engine.converter.Convert(ctx, models.ConvertRequest{InputPath: input, OutputPath: output, BitrateKbps: kbps}, printer.Print)
	if err != nil {
		engine.reporter.Capture(err, map[string]string{"operation": "cli_convert"})
		return err
	}
	printItem(cmd.OutOrStdout(), *item)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

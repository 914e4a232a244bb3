package main

import (
	"fmt"
	"io"
	"log"
	"mime"
	"os"
	"path/filepath"

	"github.com/arzan03/SecureDrop/internal/client"
	"github.com/cheggaaa/pb/v3"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"
)

func main() {
	serverFlag := &cli.StringFlag{
		Name:    "server",
		Usage:   "Transfer server base URL",
		Value:   "http://localhost:8080",
		EnvVars: []string{"DROP_SERVER"},
	}

	app := &cli.App{
		Name:  "dropctl",
		Usage: "Send and receive one-time encrypted file transfers",
		Commands: []*cli.Command{
			{
				Name:      "send",
				Usage:     "Upload a file and print its transfer code",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					serverFlag,
					&cli.StringFlag{
						Name:    "token",
						Usage:   "Bearer token; an anonymous token is requested when empty",
						EnvVars: []string{"DROP_TOKEN"},
					},
				},
				Action: sendFile,
			},
			{
				Name:      "receive",
				Usage:     "Download a file by its transfer code",
				ArgsUsage: "CODE",
				Flags: []cli.Flag{
					serverFlag,
					&cli.StringFlag{
						Name:  "out",
						Usage: "Directory to write the file into",
						Value: ".",
					},
				},
				Action: receiveFile,
			},
			{
				Name:      "info",
				Usage:     "Show a transfer's status without downloading it",
				ArgsUsage: "CODE",
				Flags:     []cli.Flag{serverFlag},
				Action:    showInfo,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func sendFile(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return cli.Exit("missing FILE argument", 1)
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return err
	}

	api := client.New(c.String("server"), c.String("token"))
	if api.Token == "" {
		if err := api.SignInAnonymously(c.Context); err != nil {
			return fmt.Errorf("anonymous sign-in failed: %w", err)
		}
	}

	bar := pb.Full.Start64(stat.Size())
	bar.Set(pb.Bytes, true)
	res, err := api.Upload(c.Context, filepath.Base(path), mime.TypeByExtension(filepath.Ext(path)), bar.NewProxyReader(f))
	bar.Finish()
	if err != nil {
		return err
	}

	fmt.Printf("Code:       %s\n", res.Code)
	fmt.Printf("Share link: %s\n", res.ShareLink)
	fmt.Printf("Expires:    %s (%s)\n", res.ExpiresAt.Local().Format("2006-01-02 15:04"), humanize.Time(res.ExpiresAt))
	fmt.Printf("Size:       %s", humanize.Bytes(uint64(res.FileSize)))
	if res.WasCompressed {
		fmt.Printf(" (stored %s, %.0f%% smaller)", humanize.Bytes(uint64(res.StoredSize)), res.CompressionRatio*100)
	}
	fmt.Println()
	return nil
}

func receiveFile(c *cli.Context) error {
	code := c.Args().First()
	if code == "" {
		return cli.Exit("missing CODE argument", 1)
	}

	api := client.New(c.String("server"), "")
	dl, err := api.Download(c.Context, code)
	if err != nil {
		return err
	}
	defer dl.Body.Close()

	bar := pb.Full.Start64(dl.Size)
	bar.Set(pb.Bytes, true)
	dest, err := client.SaveTo(c.String("out"), dl, func(r io.Reader) io.Reader {
		return bar.NewProxyReader(r)
	})
	bar.Finish()
	if err != nil {
		return err
	}

	fmt.Printf("Saved %s\n", dest)
	return nil
}

func showInfo(c *cli.Context) error {
	code := c.Args().First()
	if code == "" {
		return cli.Exit("missing CODE argument", 1)
	}

	info, err := client.New(c.String("server"), "").Info(c.Context, code)
	if err != nil {
		return err
	}

	fmt.Printf("Code:      %s\n", info.Code)
	fmt.Printf("File:      %s (%s)\n", info.FileName, info.FileSizeHuman)
	fmt.Printf("State:     %s\n", info.State)
	fmt.Printf("Uploaded:  %s\n", humanize.Time(info.UploadDate))
	fmt.Printf("Expires:   %s\n", humanize.Time(info.ExpirationDate))
	fmt.Printf("Downloads: %d\n", info.DownloadCount)
	return nil
}

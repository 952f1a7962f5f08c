package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/derektruong/cloudxfer"
	"github.com/derektruong/cloudxfer/record"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

var uploadFlags struct {
	account string
	space   string
	remote  string
	move    bool
	force   bool
	handle  bool
}

var uploadCmd = &cobra.Command{
	Use:   "upload <local path or handle>",
	Short: "Queue the upload of a local file",
	Example: `  cloudxfer upload --account nextcloud --remote /photos/cat.jpg ./cat.jpg
  cloudxfer upload --account nextcloud --remote /docs/a.pdf --handle file:///srv/share/a.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		transfers, closeDB, err := openTransfers()
		if err != nil {
			return
		}
		defer closeDB()

		upload := cloudxfer.UploadCommand{
			AccountName:    uploadFlags.account,
			SpaceID:        lo.EmptyableToPtr(uploadFlags.space),
			RemotePath:     uploadFlags.remote,
			Behavior:       lo.Ternary(uploadFlags.move, record.BehaviorMove, record.BehaviorCopy),
			ForceOverwrite: uploadFlags.force,
		}
		if uploadFlags.handle {
			upload.SourceHandle = args[0]
		} else {
			if upload.LocalPath, err = filepath.Abs(args[0]); err != nil {
				return
			}
			// the engine re-reads the size, a missing file fails there
			if info, statErr := os.Stat(upload.LocalPath); statErr == nil {
				upload.FileSize = info.Size()
			}
		}

		id, err := cloudxfer.NewEnqueuer(logger, transfers, nil).EnqueueUpload(cmd.Context(), upload)
		if err != nil {
			return
		}
		fmt.Fprintln(cmd.OutOrStdout(), id)
		return
	},
}

var downloadFlags struct {
	account string
	space   string
	size    int64
}

var downloadCmd = &cobra.Command{
	Use:   "download <remote path> <local path>",
	Short: "Queue the download of a remote file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		transfers, closeDB, err := openTransfers()
		if err != nil {
			return
		}
		defer closeDB()

		download := cloudxfer.DownloadCommand{
			AccountName: downloadFlags.account,
			SpaceID:     lo.EmptyableToPtr(downloadFlags.space),
			RemotePath:  args[0],
			FileSize:    downloadFlags.size,
		}
		if download.LocalPath, err = filepath.Abs(args[1]); err != nil {
			return
		}

		id, err := cloudxfer.NewEnqueuer(logger, transfers, nil).EnqueueDownload(cmd.Context(), download)
		if err != nil {
			return
		}
		fmt.Fprintln(cmd.OutOrStdout(), id)
		return
	},
}

func init() {
	flags := uploadCmd.Flags()
	flags.StringVarP(&uploadFlags.account, "account", "a", "", "account to upload to")
	flags.StringVarP(&uploadFlags.space, "space", "s", "", "space of the account, the personal space when empty")
	flags.StringVarP(&uploadFlags.remote, "remote", "r", "", "absolute remote path")
	flags.BoolVar(&uploadFlags.move, "move", false, "remove the local file once uploaded")
	flags.BoolVar(&uploadFlags.force, "force", false, "overwrite an existing remote file instead of renaming the upload")
	flags.BoolVar(&uploadFlags.handle, "handle", false, "treat the argument as an opaque source handle")
	_ = uploadCmd.MarkFlagRequired("account")
	_ = uploadCmd.MarkFlagRequired("remote")

	flags = downloadCmd.Flags()
	flags.StringVarP(&downloadFlags.account, "account", "a", "", "account to download from")
	flags.StringVarP(&downloadFlags.space, "space", "s", "", "space of the account, the personal space when empty")
	flags.Int64Var(&downloadFlags.size, "size", -1, "expected size in bytes, -1 when unknown")
	_ = downloadCmd.MarkFlagRequired("account")
}

package commands

import (
	"github.com/spf13/cobra"

	"github.com/wimserv/wimserv/cmd/wimserv/handlers"
	"github.com/wimserv/wimserv/internal/config"
)

// Service returns the command that services an image offline.
//
// The working folder must contain the image file (install.wim by default).
// At least one of --packages or --registry is required; the run mounts the
// image, applies the requested actions, then asks whether to commit or
// discard before unmounting.
func Service() *cobra.Command {
	opts := &config.Options{}

	cmd := &cobra.Command{
		Use:   "service <working-folder>",
		Short: "Mount an image, apply servicing actions, then commit or discard",
		Long: `Service a Windows deployment image offline.

The image is mounted read/write under a scratch subfolder of the working
folder. Optional actions run against the mounted view: removing provisioned
app packages listed in a text file, and importing registry modifications
against the image's offline hives. Nothing is persisted until you choose
Commit at the final prompt.

The registry file must reference the offline hives through the reserved
aliases OFFLINE_SOFTWARE, OFFLINE_SYSTEM and OFFLINE_DEFAULT; files touching
anything else are rejected before a hive is loaded.

Examples:
  # Remove the packages listed in remove.txt
  wimserv service D:\deploy --packages remove.txt

  # Apply registry tweaks and remove packages in one pass
  wimserv service D:\deploy --packages remove.txt --registry tweaks.reg

  # Service the second image inside the file
  wimserv service D:\deploy --registry tweaks.reg --index 2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.WorkingDir = args[0]
			return handlers.Service(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.PackageListFile, "packages", "p", "", "Package-removal list file, relative to the working folder")
	cmd.Flags().StringVarP(&opts.RegistryFile, "registry", "r", "", "Registry-modification file, relative to the working folder")
	cmd.Flags().StringVar(&opts.ImageName, "image", "", "Image file name inside the working folder (default install.wim)")
	cmd.Flags().IntVar(&opts.ImageIndex, "index", 0, "Image index to service (default 1)")
	cmd.Flags().StringVar(&opts.MountDirName, "mount-dir", "", "Mount-point subfolder name (default WIM-OFFLINESERVICING)")

	return cmd
}

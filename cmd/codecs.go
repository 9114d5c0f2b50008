package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"video2audio/domain/audio"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

var codecsCmd = &cobra.Command{
	Use:   "codecs",
	Short: "List supported codecs and their limits",
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunCodecs(os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(codecsCmd)
}

// RunCodecs prints the codec profile table
func RunCodecs(output io.Writer) error {
	_, err := fmt.Fprintln(output, renderCodecs(audio.Profiles()))
	return err
}

func renderCodecs(profiles []audio.CodecProfile) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Codec", "Container", "Ext", "Default bitrate", "Max bitrate", "Default rate", "Sample rates", "Channels"})

	for _, p := range profiles {
		tw.AppendRow(table.Row{
			p.Codec.String(),
			p.Container,
			"." + p.Extension,
			kbps(p.DefaultBitrate),
			kbps(p.MaxBitrate),
			strconv.Itoa(p.DefaultSampleRate),
			joinInts(p.SupportedSampleRates),
			joinInts(p.SupportedChannels),
		})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})
	return tw.Render()
}

// kbps renders a profile bitrate; lossless codecs have none
func kbps(bps int) string {
	if bps == 0 {
		return "lossless"
	}
	return audio.FormatBitrate(bps)
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

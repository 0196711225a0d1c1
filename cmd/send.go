package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tgsend/internal/app"
)

func newSendCmd(opts *rootOptions) *cobra.Command {
	var (
		profileName string
		sessionName string
		recipients  string
		message     string
		messageFile string
		attachment  string
	)
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Deliver a message to every recipient in a file",
		Long:  "Sends the message to each recipient listed in the file (one per line). Recipients already in the ledger are skipped, so re-running after an interruption resumes where it left off. Ctrl-C once stops gracefully after the current recipient; twice aborts.",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(a *app.App, cmd *cobra.Command, _ []string) error {
			text, err := resolveMessage(message, messageFile)
			if err != nil {
				return err
			}

			run, err := a.PrepareSend(app.SendRequest{
				Profile:        profileName,
				Session:        sessionName,
				RecipientsFile: recipients,
				Message:        text,
				Attachment:     attachment,
			})
			if err != nil {
				return err
			}
			defer run.Close()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			go handleInterrupts(ctx, cmd, run, cancel)

			sum, err := run.Run(ctx)
			fmt.Fprintf(cmd.OutOrStdout(), "ok=%d fail=%d skipped=%d took=%s\n",
				sum.OK, sum.Fail, sum.Skipped, sum.Took.Round(10*time.Millisecond))
			if errors.Is(err, context.Canceled) {
				return errors.New("aborted")
			}
			return err
		}),
	}

	f := cmd.Flags()
	f.StringVarP(&profileName, "profile", "p", "", "credential profile to dial with")
	f.StringVarP(&sessionName, "session", "s", "", "authorized session slot to send from")
	f.StringVarP(&recipients, "recipients", "r", "", "file with one recipient per line")
	f.StringVarP(&message, "message", "m", "", "message text")
	f.StringVar(&messageFile, "message-file", "", "read the message text from a file")
	f.StringVar(&attachment, "attachment", "", "send this file with the message as caption")
	_ = cmd.MarkFlagRequired("profile")
	_ = cmd.MarkFlagRequired("session")
	_ = cmd.MarkFlagRequired("recipients")
	return cmd
}

// handleInterrupts maps the first SIGINT/SIGTERM to a graceful stop (current
// recipient completes, progress stays durable) and the second to a hard
// abort.
func handleInterrupts(ctx context.Context, cmd *cobra.Command, run *app.SendRun, cancel context.CancelFunc) {
	sig := make(chan os.Signal, 2)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sig)

	select {
	case <-ctx.Done():
		return
	case <-sig:
		fmt.Fprintln(cmd.ErrOrStderr(), "stopping after current recipient (interrupt again to abort)")
		run.Engine.Stop()
	}
	select {
	case <-ctx.Done():
	case <-sig:
		cancel()
	}
}

func resolveMessage(message, messageFile string) (string, error) {
	switch {
	case message != "" && messageFile != "":
		return "", errors.New("use either --message or --message-file, not both")
	case message != "":
		return message, nil
	case messageFile != "":
		b, err := os.ReadFile(messageFile)
		if err != nil {
			return "", err
		}
		text := strings.TrimRight(string(b), "\n")
		if strings.TrimSpace(text) == "" {
			return "", errors.New("message file is empty")
		}
		return text, nil
	default:
		return "", errors.New("a message is required (--message or --message-file)")
	}
}

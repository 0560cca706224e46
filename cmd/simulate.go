package cmd

import (
	"bufio"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"sdragent/tools"
)

// simulateCmd replaces the old local test script: it posts a lead capture
// and WhatsApp messages to a running server, without exposing it publicly.
func simulateCmd() *cobra.Command {
	var (
		flags       clientFlags
		nome        string
		whatsapp    string
		segmento    string
		origem      string
		message     string
		interactive bool
		skipCapture bool
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Simulate a lead capture and WhatsApp messages against a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.client()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			status, out, err := c.do(ctx, http.MethodGet, "/health", nil)
			if err != nil {
				return fmt.Errorf("servidor indisponível em %s: %w", c.baseURL, err)
			}
			printResult(cmd, "== Health", status, out)

			if !skipCapture {
				lead := map[string]string{"nome": nome, "whatsapp": whatsapp, "segmento": segmento, "origem": origem}
				status, out, err = c.do(ctx, http.MethodPost, "/webhook/captura", lead)
				if err != nil {
					return err
				}
				printResult(cmd, "== Captura de lead", status, out)
			}

			jid := tools.RemoteJID(whatsapp)
			send := func(text string) error {
				status, out, err := c.do(ctx, http.MethodPost, "/webhook/whatsapp", whatsAppPayload(jid, nome, text))
				if err != nil {
					return err
				}
				printResult(cmd, "== Mensagem: "+text, status, out)
				return nil
			}

			if !interactive {
				if message == "" {
					return nil
				}
				return send(message)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Digite suas mensagens (ou 'sair' para encerrar). As respostas chegam pelo WhatsApp.")
			scanner := bufio.NewScanner(cmd.InOrStdin())
			for {
				fmt.Fprint(cmd.OutOrStdout(), "> ")
				if !scanner.Scan() {
					return scanner.Err()
				}
				text := strings.TrimSpace(scanner.Text())
				if text == "" {
					continue
				}
				if strings.EqualFold(text, "sair") {
					return nil
				}
				if err := send(text); err != nil {
					return err
				}
			}
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&nome, "nome", "João Silva", "lead name")
	cmd.Flags().StringVar(&whatsapp, "whatsapp", "11999998888", "lead phone")
	cmd.Flags().StringVar(&segmento, "segmento", "Contabilidade", "lead segment")
	cmd.Flags().StringVar(&origem, "origem", "formulario_teste", "lead origin")
	cmd.Flags().StringVarP(&message, "message", "m", "Olá, tudo bem?", "WhatsApp message to send after the capture")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "read messages from stdin")
	cmd.Flags().BoolVar(&skipCapture, "skip-capture", false, "do not post the lead capture")
	return cmd
}

// whatsAppPayload mimics an Evolution API messages.upsert webhook.
func whatsAppPayload(jid, pushName, text string) map[string]any {
	return map[string]any{
		"event":    "messages.upsert",
		"instance": "simulate",
		"data": map[string]any{
			"key": map[string]any{
				"id":        "SIM" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:16]),
				"remoteJid": jid,
				"fromMe":    false,
			},
			"message":     map[string]any{"conversation": text},
			"messageType": "conversation",
			"pushName":    pushName,
		},
	}
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/jeranaias/opusagent/internal/model"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter exports conversations to HTML format with embedded CSS.
type HTMLExporter struct{}

// Export converts a conversation to a standalone styled HTML page.
func (e *HTMLExporter) Export(conv *Conversation) ([]byte, error) {
	if conv == nil {
		return nil, fmt.Errorf("conversation is nil")
	}

	now := time.Now().Format(timestampLayout)

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n")
	sb.WriteString("<html lang=\"en\">\n")
	sb.WriteString("<head>\n")
	sb.WriteString("    <meta charset=\"UTF-8\">\n")
	sb.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	sb.WriteString(fmt.Sprintf("    <title>Anthropic %s Conversation - %s</title>\n",
		html.EscapeString(conv.ModelName), html.EscapeString(conv.AgentID)))
	sb.WriteString(getCSS())
	sb.WriteString("</head>\n")
	sb.WriteString("<body>\n")
	sb.WriteString("    <div class=\"container\">\n")

	e.renderHeader(&sb, conv, now)
	e.renderStats(&sb, conv)

	sb.WriteString("        <div class=\"messages\">\n")
	for i := range conv.Messages {
		e.renderMessage(&sb, &conv.Messages[i])
	}
	sb.WriteString("        </div>\n")

	sb.WriteString("        <div class=\"footer\">\n")
	sb.WriteString(fmt.Sprintf("            Generated by Anthropic %s Chat Agent &bull; Agent ID: %s &bull; %s\n",
		html.EscapeString(conv.ModelName), html.EscapeString(conv.AgentID), now))
	sb.WriteString("        </div>\n")
	sb.WriteString("    </div>\n")
	sb.WriteString("</body>\n")
	sb.WriteString("</html>\n")

	return []byte(sb.String()), nil
}

func (e *HTMLExporter) renderHeader(sb *strings.Builder, conv *Conversation, now string) {
	sb.WriteString("        <div class=\"header\">\n")
	sb.WriteString(fmt.Sprintf("            <h1>Anthropic %s Chat Agent</h1>\n", html.EscapeString(conv.ModelName)))
	sb.WriteString("            <p>Conversation Export</p>\n")
	sb.WriteString("            <div class=\"header-info\">\n")
	sb.WriteString(fmt.Sprintf("                <div><strong>Agent ID:</strong> %s</div>\n", html.EscapeString(conv.AgentID)))
	sb.WriteString(fmt.Sprintf("                <div><strong>Model:</strong> %s</div>\n", html.EscapeString(conv.Config.Model)))
	sb.WriteString(fmt.Sprintf("                <div><strong>Exported:</strong> %s</div>\n", now))
	sb.WriteString(fmt.Sprintf("                <div><strong>Temperature:</strong> %g</div>\n", conv.Config.Temperature))
	sb.WriteString("            </div>\n")
	sb.WriteString("        </div>\n")
}

func (e *HTMLExporter) renderStats(sb *strings.Builder, conv *Conversation) {
	stats := conv.Statistics
	items := []struct {
		value string
		label string
	}{
		{fmt.Sprintf("%d", stats.TotalMessages), "Total Messages"},
		{fmt.Sprintf("%d", stats.UserMessages), "User Messages"},
		{fmt.Sprintf("%d", stats.AssistantMessages), "Assistant Messages"},
		{fmt.Sprintf("%d", stats.TotalCharacters), "Total Characters"},
		{fmt.Sprintf("%d", stats.AverageMessageLength), "Avg Message Length"},
		{stats.ConversationDuration, "Duration"},
	}

	sb.WriteString("        <div class=\"stats\">\n")
	sb.WriteString("            <div class=\"stats-grid\">\n")
	for _, item := range items {
		value := item.value
		if value == "" {
			value = "N/A"
		}
		sb.WriteString("                <div class=\"stat-item\">\n")
		sb.WriteString(fmt.Sprintf("                    <div class=\"stat-value\">%s</div>\n", html.EscapeString(value)))
		sb.WriteString(fmt.Sprintf("                    <div class=\"stat-label\">%s</div>\n", item.label))
		sb.WriteString("                </div>\n")
	}
	sb.WriteString("            </div>\n")
	sb.WriteString("        </div>\n")
}

func (e *HTMLExporter) renderMessage(sb *strings.Builder, msg *model.Message) {
	avatar := "AI"
	if msg.Role == model.RoleUser {
		avatar = "U"
	}

	sb.WriteString(fmt.Sprintf("            <div class=\"message %s\">\n", msg.Role))
	sb.WriteString(fmt.Sprintf("                <div class=\"message-avatar\">%s</div>\n", avatar))
	sb.WriteString("                <div class=\"message-content\">\n")
	sb.WriteString("                    <div class=\"message-header\">\n")
	sb.WriteString(fmt.Sprintf("                        <span class=\"message-role\">%s</span>\n", msg.Role))
	sb.WriteString(fmt.Sprintf("                        <span class=\"message-time\">%s</span>\n", msg.Timestamp.Format(timestampLayout)))
	sb.WriteString("                    </div>\n")
	sb.WriteString(fmt.Sprintf("                    <div class=\"message-text\">%s</div>\n", formatContent(msg.Content)))
	sb.WriteString("                </div>\n")
	sb.WriteString("            </div>\n")
}

// formatContent escapes message text and wraps fenced code spans in a
// styled block.
func formatContent(content string) string {
	escaped := html.EscapeString(content)
	if !strings.Contains(escaped, "```") {
		return escaped
	}

	parts := strings.Split(escaped, "```")
	var sb strings.Builder
	for i, part := range parts {
		if i%2 == 1 {
			sb.WriteString(`<div class="code-block">` + part + `</div>`)
		} else {
			sb.WriteString(part)
		}
	}
	return sb.String()
}

func getCSS() string {
	return `    <style>
        :root {
            --primary-color: #2563eb;
            --secondary-color: #f1f5f9;
            --text-color: #1e293b;
            --border-color: #e2e8f0;
            --user-bg: #3b82f6;
            --assistant-bg: #10b981;
            --code-bg: #f8fafc;
            --shadow: 0 4px 6px -1px rgba(0, 0, 0, 0.1);
        }
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            line-height: 1.6;
            color: var(--text-color);
            background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);
            min-height: 100vh;
            padding: 2rem;
        }
        .container {
            max-width: 1200px;
            margin: 0 auto;
            background: white;
            border-radius: 1rem;
            box-shadow: 0 25px 50px -12px rgba(0, 0, 0, 0.25);
            overflow: hidden;
        }
        .header { background: var(--primary-color); color: white; padding: 2rem; text-align: center; }
        .header h1 { font-size: 2rem; margin-bottom: 0.5rem; }
        .header-info {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(200px, 1fr));
            gap: 1rem;
            margin-top: 2rem;
            font-size: 0.9rem;
        }
        .stats { background: var(--secondary-color); padding: 1.5rem; border-bottom: 1px solid var(--border-color); }
        .stats-grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(150px, 1fr)); gap: 1rem; }
        .stat-item { text-align: center; padding: 1rem; background: white; border-radius: 0.5rem; box-shadow: var(--shadow); }
        .stat-value { font-size: 1.5rem; font-weight: bold; color: var(--primary-color); }
        .stat-label { font-size: 0.8rem; color: #64748b; margin-top: 0.25rem; }
        .messages { padding: 2rem; max-height: 70vh; overflow-y: auto; }
        .message { margin-bottom: 2rem; display: flex; align-items: flex-start; gap: 1rem; }
        .message.user { flex-direction: row-reverse; }
        .message-avatar {
            width: 3rem;
            height: 3rem;
            border-radius: 50%;
            display: flex;
            align-items: center;
            justify-content: center;
            font-size: 1.2rem;
            font-weight: bold;
            color: white;
            flex-shrink: 0;
        }
        .message.user .message-avatar { background: var(--user-bg); }
        .message.assistant .message-avatar { background: var(--assistant-bg); }
        .message-content {
            flex: 1;
            background: white;
            border: 1px solid var(--border-color);
            border-radius: 1rem;
            padding: 1.5rem;
            box-shadow: var(--shadow);
        }
        .message.user .message-content { background: #eff6ff; border-color: var(--user-bg); }
        .message.assistant .message-content { background: #f0fdf4; border-color: var(--assistant-bg); }
        .message-header {
            display: flex;
            justify-content: space-between;
            align-items: center;
            margin-bottom: 1rem;
            padding-bottom: 0.5rem;
            border-bottom: 1px solid var(--border-color);
        }
        .message-role { font-weight: 600; text-transform: capitalize; }
        .message-time { font-size: 0.8rem; color: #64748b; }
        .message-text { white-space: pre-wrap; word-wrap: break-word; }
        .code-block {
            background: var(--code-bg);
            border: 1px solid var(--border-color);
            border-radius: 0.5rem;
            padding: 1rem;
            margin: 1rem 0;
            overflow-x: auto;
            font-family: 'Monaco', 'Menlo', monospace;
            font-size: 0.9rem;
        }
        .footer {
            background: var(--secondary-color);
            padding: 1rem 2rem;
            text-align: center;
            font-size: 0.8rem;
            color: #64748b;
            border-top: 1px solid var(--border-color);
        }
        @media (max-width: 768px) {
            body { padding: 1rem; }
            .header { padding: 1.5rem; }
            .header h1 { font-size: 1.5rem; }
            .header-info { grid-template-columns: 1fr; }
            .messages { padding: 1rem; }
            .message-content { padding: 1rem; }
        }
    </style>
`
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}

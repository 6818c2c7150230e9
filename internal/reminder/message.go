package reminder

import (
	"fmt"
	"time"
)

// TestMessage is sent by the configuration test.
const TestMessage = "🎮 *Aion Classic Timer - TESTE DE CONFIGURAÇÃO* 🎮\n\n" +
	"Esta é uma mensagem de teste para verificar a configuração do WhatsApp. " +
	"Se você recebeu esta mensagem, a configuração está correta!"

// ReminderMessage formats the WhatsApp reminder for an event opening at opens.
// Date and time are rendered in opens' location as dd/MM and HH:mm.
func ReminderMessage(eventName string, opens time.Time, lead time.Duration) string {
	return fmt.Sprintf(
		"🎮 *Aion Classic Timer* 🎮\n\nO evento *%s* começará em %d minutos (%s às %s)! Prepare-se!",
		eventName,
		int(lead.Minutes()),
		opens.Format("02/01"),
		opens.Format("15:04"),
	)
}

// cmd/worker/main.go
package main

import (
	"encoding/json"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/streadway/amqp"

	"github.com/distroline/botcrm-backend/internal/config"
	"github.com/distroline/botcrm-backend/internal/model"
	"github.com/distroline/botcrm-backend/internal/queue"
)

const maxDeliveryRetries = 3

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, relying on OS environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("invalid configuration:", err)
	}
	if cfg.BotToken == "" {
		log.Fatal("BOT_TOKEN is required")
	}

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Fatal("failed to connect to Telegram:", err)
	}
	log.Printf("✅ Authorized as @%s\n", bot.Self.UserName)

	conn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		log.Fatal("failed to connect to RabbitMQ:", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatal("failed to open channel:", err)
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(queue.DeliveryQueue, true, false, false, false, nil); err != nil {
		log.Fatal("failed to declare queue:", err)
	}

	// One unacked message at a time keeps Telegram rate limits manageable.
	if err := ch.Qos(1, 0, false); err != nil {
		log.Fatal("failed to set QoS:", err)
	}

	msgs, err := ch.Consume(queue.DeliveryQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatal("failed to start consuming:", err)
	}

	log.Println("📩 Delivery worker waiting for jobs")
	for d := range msgs {
		handleDelivery(bot, ch, d)
	}
}

func handleDelivery(bot *tgbotapi.BotAPI, ch *amqp.Channel, d amqp.Delivery) {
	var job queue.DeliveryJob
	if err := json.Unmarshal(d.Body, &job); err != nil {
		log.Println("⚠️ dropping malformed delivery job:", err)
		d.Ack(false)
		return
	}

	if err := sendMessage(bot, job); err != nil {
		retries := retryCount(d)
		if retries < maxDeliveryRetries {
			log.Printf("⚠️ delivery to user %d failed (attempt %d): %v\n", job.UserID, retries+1, err)
			requeue(ch, d, retries+1)
		} else {
			log.Printf("⚠️ delivery to user %d permanently failed after %d attempts: %v\n", job.UserID, retries, err)
		}
		d.Ack(false)
		return
	}

	d.Ack(false)
}

func sendMessage(bot *tgbotapi.BotAPI, job queue.DeliveryJob) error {
	switch {
	case job.MediaType == model.MediaPhoto && job.MediaURL != "":
		photo := tgbotapi.NewPhoto(job.UserID, tgbotapi.FileURL(job.MediaURL))
		photo.Caption = job.Text
		_, err := bot.Send(photo)
		return err
	case job.MediaType == model.MediaVideo && job.MediaURL != "":
		video := tgbotapi.NewVideo(job.UserID, tgbotapi.FileURL(job.MediaURL))
		video.Caption = job.Text
		_, err := bot.Send(video)
		return err
	default:
		_, err := bot.Send(tgbotapi.NewMessage(job.UserID, job.Text))
		return err
	}
}

func retryCount(d amqp.Delivery) int {
	if d.Headers == nil {
		return 0
	}
	switch n := d.Headers["x-retry-count"].(type) {
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

// requeue republishes the job with an incremented retry counter. The original
// message is acked by the caller, so a crashed worker at worst redelivers.
func requeue(ch *amqp.Channel, d amqp.Delivery, retries int) {
	err := ch.Publish("", queue.DeliveryQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         d.Body,
		DeliveryMode: amqp.Persistent,
		Headers:      amqp.Table{"x-retry-count": int32(retries)},
	})
	if err != nil {
		log.Println("⚠️ failed to requeue delivery job:", err)
	}
}

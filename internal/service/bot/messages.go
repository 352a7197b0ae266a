package bot

import "fmt"

// Callback data carried by inline buttons.
const (
	CallbackRolePhotographer = "role_photographer"
	CallbackRoleClient       = "role_client"
	CallbackDeleteMe         = "delete_me"
	CallbackDeleteConfirm    = "delete_confirm"
	CallbackDeleteCancel     = "delete_cancel"
)

// Commands understood by the controller, without the leading slash.
const (
	CommandStart    = "start"
	CommandDeleteMe = "delete_me"
	CommandHelp     = "help"
)

const (
	textChooseRole = "👋 Привет! Я BrashLens бот. 🤝\n\nВыберите вашу роль:"

	textRegisteredPhotographer = "Отлично! Вы зарегистрированы как фотограф 📸\n\n" +
		"Следующие шаги:\n" +
		"1. Заполните профиль (имя, город, валюта)\n" +
		"2. Загрузите портфолио\n" +
		"3. Настройте календарь\n" +
		"4. Создайте пакеты услуг\n\n" +
		"Используйте /help для списка команд"

	textRegisteredClient = "Отлично! Вы зарегистрированы как клиент 🙂\n\n" +
		"Теперь вы можете:\n" +
		"• Просматривать портфолио фотографов\n" +
		"• Записываться на съемки\n" +
		"• Получать уведомления\n\n" +
		"Используйте /help для списка команд"

	textRegistrationFailed = "Произошла ошибка при регистрации. Попробуйте позже или обратитесь в поддержку."

	textDeleteConfirm = "⚠️ *ВНИМАНИЕ! Это действие нельзя отменить.*\n\n" +
		"Вы действительно хотите удалить свой аккаунт?\n\n" +
		"*Будет удалено:*\n" +
		"• Все ваши данные\n" +
		"• Профиль фотографа (если есть)\n" +
		"• Настройки и портфолио\n" +
		"• Все связанные данные\n\n" +
		"*Это действие необратимо!*\n\n" +
		"После удаления вы сможете зарегистрироваться заново через /start."

	textAlreadyDeleted = "❌ Аккаунт не найден. Возможно, уже удален.\n\n" +
		"Используйте /start для регистрации."

	textAccountNotFoundAlert = "Аккаунт не найден"

	textDeleted = "✅ *Аккаунт успешно удален!*\n\n" +
		"Все ваши данные удалены из системы.\n\n" +
		"Для новой регистрации используйте команду:\n" +
		"`/start`\n\n" +
		"Спасибо за использование BrashLens! 👋"

	textDeleteFailed = "❌ Произошла ошибка при удалении аккаунта.\n\n" +
		"Попробуйте позже или обратитесь в поддержку.\n\n" +
		"Ошибка зафиксирована в логах."

	textDeleteCancelled      = "✅ Удаление отменено.\n\nВаш аккаунт в безопасности."
	textDeleteCancelledToast = "Удаление отменено"

	textUnknownCommand = "Неизвестная команда."

	textTemporaryError = "Произошла ошибка. Попробуйте позже."

	textHelp = "Доступные команды:\n\n" +
		"/start - регистрация или главное меню\n" +
		"/delete_me - удалить аккаунт\n" +
		"/help - список команд"

	textAccessDenied = "🚫 *СТОП! HALT! ALTO!*\n\n" +
		"Обнаружена попытка несанкционированного проникновения к тестовому боту. " +
		"Ты кто такой? Давай, до свидания! (шутка, дорогой, не обижайся)\n\n" +
		"🔐 Доступ разрешен только для авторизованных разработчиков. " +
		"Ты вроде не из наших... пока что.\n\n" +
		"📝 Кстати, мы всё записали: твой ID, время визита, что пытался сделать. " +
		"Не для доноса начальству, а так... чисто для логов. Так положено 🤟"

	textAccessDeniedAlert = "🚨 НЕСАНКЦИОНИРОВАННЫЙ ДОСТУП!"

	buttonPhotographer  = "📸 Я фотограф"
	buttonClient        = "👤 Я клиент"
	buttonDeleteMe      = "🗑️ Удали меня"
	buttonConfirmDelete = "✅ Да, удалить навсегда"
	buttonCancelDelete  = "❌ Отмена"
)

func welcomeBackText(firstName string, role string) string {
	roleLine := ""
	switch role {
	case "photographer":
		roleLine = "📸 Вы зарегистрированы как фотограф."
	case "client":
		roleLine = "👤 Вы зарегистрированы как клиент."
	case "admin":
		roleLine = "🛠 Вы зарегистрированы как администратор."
	}
	return fmt.Sprintf("👋 Привет, %s!\n\n%s\n\nИспользуйте /start для обновления или /help для списка команд.", firstName, roleLine)
}

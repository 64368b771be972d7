// Package timezone определяет IANA зону лида.
//
// Порядок:
//  1. IP лида → внешний geo-сервис (ip-api.com, таймаут 5s, кэш 6h)
//  2. код страны → статическая таблица
//  3. зона по умолчанию
//
// Resolve никогда не возвращает ошибку: любой сбой деградирует к следующему шагу.
package timezone
